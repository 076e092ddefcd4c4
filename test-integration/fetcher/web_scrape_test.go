package integration

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/test-integration/fetcher/helpers"
)

const releasePage = `<!DOCTYPE html>
<html><head><title>Release</title>
<script>var label = "Download data";</script>
</head><body>
<nav><a href="/">Home</a></nav>
<ul>
  <li><a href="/downloads/data.csv">Download data</a></li>
  <li><a href="/downloads/archive.zip">Download archive</a></li>
  <li><a href="/downloads/crime.ods">Open data tables</a></li>
</ul>
</body></html>`

var _ = Describe("Web Scrape Sources", Label("scrape"), func() {
	var (
		tempDir   string
		statusDir string
		server    *helpers.StatsServer
	)

	scrapeSource := func(name, linkText, fileType string) config.SourceConfig {
		return config.SourceConfig{
			Name:       name,
			Type:       config.SourceTypeWebScrape,
			URL:        server.URL + "/releases/latest",
			Method:     "GET",
			Parser:     "html.parser",
			FileType:   fileType,
			LinkText:   linkText,
			BaseURL:    server.URL,
			OutputFile: name + ".csv",
		}
	}

	BeforeEach(func() {
		tempDir = createTempDir("web-scrape-test-")
		statusDir = filepath.Join(tempDir, "status")
		server = helpers.NewStatsServer()
		server.ServeHTML("/releases/latest", releasePage)
		server.Serve("/downloads/data.csv", "text/csv", []byte("quarter,gdp\n2024 Q1,0.7\n"))
	})

	AfterEach(func() {
		server.Close()
		cleanupTempDir(tempDir)
	})

	Context("Linked files", func() {
		It("should resolve the href against base_url and download the file", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				scrapeSource("gdp", "Download data", config.FileTypeCSV))

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())
			Expect(report.Results[0].Result.ResolvedURL).To(Equal(server.URL + "/downloads/data.csv"))
			Expect(readCSV(filepath.Join(tempDir, "out", "gdp.csv"))).To(Equal([][]string{
				{"quarter", "gdp"},
				{"2024 Q1", "0.7"},
			}))
			Expect(server.Hits("/releases/latest")).To(Equal(1))
			Expect(server.Hits("/downloads/data.csv")).To(Equal(1))
		})

		It("should fail with LinkNotFoundError when no anchor matches", func() {
			configPath := helpers.WriteSourcesYAML(tempDir, "out",
				scrapeSource("gdp", "Download data (CSV)", config.FileTypeCSV))

			report := fetchAll(configPath, statusDir)
			Expect(report.Results[0].Err).To(MatchError(sources.ErrLinkNotFound))
			Expect(report.FailedNames()).To(ConsistOf("gdp"))
			Expect(server.Hits("/downloads/data.csv")).To(BeZero())
		})
	})

	Context("ZIP archives", func() {
		It("should extract the single member matching the pattern", func() {
			server.Serve("/downloads/archive.zip", "application/zip", helpers.BuildZIP(
				helpers.Member{Name: "spc_school_characteristics_2023.csv", Data: []byte("urn,pupils\n100000,250\n")},
				helpers.Member{Name: "readme.txt", Data: []byte("Read me")},
			))

			src := scrapeSource("school_characteristics", "Download archive", config.FileTypeZIP)
			src.ZipTargetFile = "spc_school_characteristics_*.csv"
			configPath := helpers.WriteSourcesYAML(tempDir, "out", src)

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())
			Expect(report.Results[0].Result.Member).To(Equal("spc_school_characteristics_2023.csv"))
			Expect(readCSV(filepath.Join(tempDir, "out", "school_characteristics.csv"))).To(Equal([][]string{
				{"urn", "pupils"},
				{"100000", "250"},
			}))
		})

		It("should fail with AmbiguousMatchError when two members match", func() {
			server.Serve("/downloads/archive.zip", "application/zip", helpers.BuildZIP(
				helpers.Member{Name: "spc_school_characteristics_2022.csv", Data: []byte("urn\n1\n")},
				helpers.Member{Name: "spc_school_characteristics_2023.csv", Data: []byte("urn\n2\n")},
			))

			src := scrapeSource("school_characteristics", "Download archive", config.FileTypeZIP)
			src.ZipTargetFile = "spc_school_characteristics_*.csv"
			configPath := helpers.WriteSourcesYAML(tempDir, "out", src)

			report := fetchAll(configPath, statusDir)
			Expect(report.Results[0].Err).To(MatchError(sources.ErrAmbiguousMatch))
		})
	})

	Context("ODS spreadsheets", func() {
		It("should extract the named sheet", func() {
			server.Serve("/downloads/crime.ods", "application/vnd.oasis.opendocument.spreadsheet", helpers.BuildODS(
				helpers.Sheet{Name: "Notes", Rows: [][]any{{"Police recorded crime"}}},
				helpers.Sheet{Name: "Data", Rows: [][]any{{"force", "offences"}, {"Avon and Somerset", "140212"}}},
			))

			src := scrapeSource("crime_outcomes", "Open data tables", config.FileTypeODS)
			src.SheetName = "Data"
			configPath := helpers.WriteSourcesYAML(tempDir, "out", src)

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())
			Expect(readCSV(filepath.Join(tempDir, "out", "crime_outcomes.csv"))).To(Equal([][]string{
				{"force", "offences"},
				{"Avon and Somerset", "140212"},
			}))
		})
	})

	Context("Inline tables", func() {
		It("should pad short rows to the widest row", func() {
			server.ServeHTML("/regions", `<table id="stats-table">
				<tr><th>Region</th><th>Claimants</th></tr>
				<tr><td>North</td></tr>
				<tr><td>South</td><td>1200</td></tr>
			</table>`)

			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "claimants",
				Type:       config.SourceTypeWebScrape,
				URL:        server.URL + "/regions",
				Method:     "GET",
				FileType:   config.FileTypeCSV,
				OutputFile: "claimants.csv",
			})

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())
			Expect(readCSV(filepath.Join(tempDir, "out", "claimants.csv"))).To(Equal([][]string{
				{"Region", "Claimants"},
				{"North", ""},
				{"South", "1200"},
			}))
		})

		It("should extract the table at the selector when no link text is given", func() {
			server.ServeHTML("/rates", `<html><body>
				<table id="stats-table">
					<thead><tr><th>Date Changed</th><th>Rate</th></tr></thead>
					<tbody>
						<tr><td>01 Aug 24</td><td>5.00</td></tr>
						<tr><td>03 Aug 23</td><td>5.25</td></tr>
					</tbody>
				</table>
			</body></html>`)

			configPath := helpers.WriteSourcesYAML(tempDir, "out", config.SourceConfig{
				Name:       "interest_rates",
				Type:       config.SourceTypeWebScrape,
				URL:        server.URL + "/rates",
				Method:     "GET",
				FileType:   config.FileTypeCSV,
				OutputFile: "interest_rates.csv",
			})

			report := fetchAll(configPath, statusDir)
			Expect(report.OK()).To(BeTrue())
			Expect(readCSV(filepath.Join(tempDir, "out", "interest_rates.csv"))).To(Equal([][]string{
				{"Date Changed", "Rate"},
				{"01 Aug 24", "5.00"},
				{"03 Aug 23", "5.25"},
			}))
		})
	})
})
