package helpers

import (
	"os"
	"path/filepath"

	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/ukstats/sourcefetch/internal/config"
)

// WriteSourcesYAML writes a source list to dir/sources.yaml and returns its path
func WriteSourcesYAML(dir, outputDir string, sources ...config.SourceConfig) string {
	data, err := yaml.Marshal(&config.Config{OutputDir: outputDir, Sources: sources})
	Expect(err).NotTo(HaveOccurred())

	path := filepath.Join(dir, "sources.yaml")
	Expect(os.WriteFile(path, data, 0600)).To(Succeed())
	return path
}

// CSVSource returns a direct download descriptor for a CSV file
func CSVSource(name, url, outputFile string) config.SourceConfig {
	return config.SourceConfig{
		Name:       name,
		Type:       config.SourceTypeDirectDownload,
		URL:        url,
		Method:     "GET",
		FileType:   config.FileTypeCSV,
		OutputFile: outputFile,
	}
}
