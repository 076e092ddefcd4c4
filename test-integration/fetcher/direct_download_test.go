package integration

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/test-integration/fetcher/helpers"
)

var _ = Describe("Direct Download Sources", Label("direct"), func() {
	var (
		tempDir   string
		statusDir string
		server    *helpers.StatsServer
	)

	BeforeEach(func() {
		tempDir = createTempDir("direct-download-test-")
		statusDir = filepath.Join(tempDir, "status")
		server = helpers.NewStatsServer()
	})

	AfterEach(func() {
		server.Close()
		cleanupTempDir(tempDir)
	})

	Context("CSV files", func() {
		It("should write the same rows as the response body", func() {
			body := []byte("Date,RegionName,AveragePrice\r\n" +
				"2024-01-01,\"Bristol, City of\",335000\r\n" +
				"2024-01-01,\"Said \"\"quoted\"\"\",\r\n")
			server.Serve("/hpi.csv", "text/csv", body)

			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				helpers.CSVSource("house_price_index", server.URL+"/hpi.csv", "hpi.csv"))

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())

			Expect(readCSV(filepath.Join(tempDir, "out", "hpi.csv"))).To(Equal([][]string{
				{"Date", "RegionName", "AveragePrice"},
				{"2024-01-01", "Bristol, City of", "335000"},
				{"2024-01-01", `Said "quoted"`, ""},
			}))
		})

		It("should fail with FetchError when the server errors", func() {
			server.ServeStatus("/hpi.csv", 500)

			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				helpers.CSVSource("house_price_index", server.URL+"/hpi.csv", "hpi.csv"))

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeFalse())
			Expect(report.Results[0].Err).To(MatchError(sources.ErrFetch))
			Expect(server.Hits("/hpi.csv")).To(Equal(1), "a source is attempted once")
		})
	})

	Context("XLSX workbooks", func() {
		BeforeEach(func() {
			server.Serve("/rents.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				helpers.BuildXLSX(
					helpers.Sheet{Name: "Summary 1", Rows: [][]any{{"region", "rent"}, {"London", 2121}, {"Wales", 778}}},
					helpers.Sheet{Name: "Summary 2", Rows: [][]any{{"other"}, {"data"}}},
				))
		})

		It("should extract exactly the named sheet", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "private_rental_prices",
				Type:       config.SourceTypeDirectDownload,
				URL:        server.URL + "/rents.xlsx",
				Method:     "GET",
				FileType:   config.FileTypeXLSX,
				SheetName:  "Summary 1",
				OutputFile: "rents.csv",
			})

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())

			Expect(readCSV(filepath.Join(tempDir, "out", "rents.csv"))).To(Equal([][]string{
				{"region", "rent"},
				{"London", "2121"},
				{"Wales", "778"},
			}))
		})

		It("should pad a title row above the header to the table width", func() {
			server.Serve("/hpi.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				helpers.BuildXLSX(helpers.Sheet{Name: "Table 1", Rows: [][]any{
					{"Table 1: House prices"},
					{"Region", "Price", "Change"},
					{"London", 523000, "1.2"},
				}}))

			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "house_price_tables",
				Type:       config.SourceTypeDirectDownload,
				URL:        server.URL + "/hpi.xlsx",
				Method:     "GET",
				FileType:   config.FileTypeXLSX,
				SheetName:  "Table 1",
				OutputFile: "hpi_tables.csv",
			})

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())

			Expect(readCSV(filepath.Join(tempDir, "out", "hpi_tables.csv"))).To(Equal([][]string{
				{"Table 1: House prices", "", ""},
				{"Region", "Price", "Change"},
				{"London", "523000", "1.2"},
			}))
		})

		It("should fail with FormatError when the sheet is missing", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "private_rental_prices",
				Type:       config.SourceTypeDirectDownload,
				URL:        server.URL + "/rents.xlsx",
				Method:     "GET",
				FileType:   config.FileTypeXLSX,
				SheetName:  "Summary 3",
				OutputFile: "rents.csv",
			})

			report := fetchAll(configPath, statusDir)
			Expect(report.Results[0].Err).To(MatchError(sources.ErrFormat))
			Expect(report.Results[0].Err.Error()).To(ContainSubstring("Summary 3"))

			_, err := os.Stat(filepath.Join(tempDir, "out", "rents.csv"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("Source list validation", func() {
		It("should reject an xlsx source without sheet_name before any request", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "private_rental_prices",
				Type:       config.SourceTypeDirectDownload,
				URL:        server.URL + "/rents.xlsx",
				Method:     "GET",
				FileType:   config.FileTypeXLSX,
				OutputFile: "rents.csv",
			})

			_, err := config.LoadConfig(config.WithConfigPath(configPath))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("sheet_name"))
			Expect(server.Hits("/rents.xlsx")).To(BeZero())
		})
	})
})
