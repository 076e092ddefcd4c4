package integration

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ukstats/sourcefetch/cmd/sourcefetch/app"
	"github.com/ukstats/sourcefetch/internal/status"
	"github.com/ukstats/sourcefetch/test-integration/fetcher/helpers"
)

var _ = Describe("Fetch Runs", Label("run"), func() {
	var (
		tempDir   string
		statusDir string
		server    *helpers.StatsServer
	)

	BeforeEach(func() {
		tempDir = createTempDir("fetch-run-test-")
		statusDir = filepath.Join(tempDir, "status")
		server = helpers.NewStatsServer()
		server.Serve("/hpi.csv", "text/csv", []byte("Date,AveragePrice\n2024-01-01,285000\n"))
		server.Serve("/gdp.csv", "text/csv", []byte("quarter,gdp\n2024 Q1,0.7\n"))
	})

	AfterEach(func() {
		server.Close()
		cleanupTempDir(tempDir)
	})

	Context("When one source returns 404", func() {
		It("should write the other sources and report the failure by name", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				helpers.CSVSource("house_price_index", server.URL+"/hpi.csv", "hpi.csv"),
				helpers.CSVSource("rental_prices", server.URL+"/missing.csv", "rents.csv"),
				helpers.CSVSource("gdp", server.URL+"/gdp.csv", "gdp.csv"),
			)

			output, err := runCLI("fetch", "--config", configPath, "--status-dir", statusDir)
			Expect(err).To(MatchError(app.ErrSourcesFailed))
			Expect(err.Error()).To(ContainSubstring("rental_prices"))

			Expect(output).To(ContainSubstring("2/3 sources completed extraction"))
			Expect(output).To(ContainSubstring("rental_prices: rental_prices: FetchError"))

			Expect(readCSV(filepath.Join(tempDir, "out", "hpi.csv"))).To(HaveLen(2))
			Expect(readCSV(filepath.Join(tempDir, "out", "gdp.csv"))).To(HaveLen(2))
			_, statErr := os.Stat(filepath.Join(tempDir, "out", "rents.csv"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())

			persistence := status.NewFileStatusPersistence(statusDir)
			st, err := persistence.LoadStatus(ctx, "rental_prices")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Phase).To(Equal(status.FetchPhaseFailed))
			Expect(st.ErrorKind).To(Equal("FetchError"))
		})
	})

	Context("When every source succeeds", func() {
		It("should exit cleanly and show the status", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				helpers.CSVSource("house_price_index", server.URL+"/hpi.csv", "hpi.csv"),
				helpers.CSVSource("gdp", server.URL+"/gdp.csv", "gdp.csv"),
			)

			output, err := runCLI("fetch", "--config", configPath, "--status-dir", statusDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(ContainSubstring("2/2 sources completed extraction"))

			output, err = runCLI("status", "--status-dir", statusDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(ContainSubstring("house_price_index"))
			Expect(output).To(ContainSubstring("Complete"))
		})
	})

	Context("When the fetcher runs twice", func() {
		It("should overwrite outputs instead of appending", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				helpers.CSVSource("house_price_index", server.URL+"/hpi.csv", "hpi.csv"),
			)
			outFile := filepath.Join(tempDir, "out", "hpi.csv")

			first := fetchAll(configPath, statusDir)
			Expect(first.OK()).To(BeTrue())
			firstData, err := os.ReadFile(outFile)
			Expect(err).NotTo(HaveOccurred())

			second := fetchAll(configPath, statusDir)
			Expect(second.OK()).To(BeTrue())
			secondData, err := os.ReadFile(outFile)
			Expect(err).NotTo(HaveOccurred())

			Expect(secondData).To(Equal(firstData))
			Expect(second.Results[0].Changed).To(BeFalse())

			By("replacing the file when the source changes")
			server.Serve("/hpi.csv", "text/csv", []byte("Date,AveragePrice\n2024-02-01,287000\n"))
			third := fetchAll(configPath, statusDir)
			Expect(third.Results[0].Changed).To(BeTrue())
			Expect(readCSV(outFile)).To(Equal([][]string{
				{"Date", "AveragePrice"},
				{"2024-02-01", "287000"},
			}))
		})
	})
})
