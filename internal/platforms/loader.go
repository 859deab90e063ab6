package platforms

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
)

// LoadOverridesFromFiles loads platform definition overrides from TOML files
// in the specified directory. Each file holds one full definition. This is
// the maintenance path for UI drift: when a platform changes its pages,
// selectors are updated in data files, not code.
func LoadOverridesFromFiles(registry *Registry, dirPath string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dirPath).Msg("Loading platform definition overrides")

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("dir", dirPath).Msg("Platform overrides directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read platform overrides directory")
		return nil // Non-fatal
	}

	loadedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read platform override file")
			errorCount++
			continue
		}

		var def Definition
		if err := toml.Unmarshal(content, &def); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse platform override file")
			errorCount++
			continue
		}

		if err := registry.Register(&def); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Rejected invalid platform override")
			errorCount++
			continue
		}

		logger.Info().
			Str("file", entry.Name()).
			Str("platform", def.Platform.String()).
			Msg("Platform definition override loaded")
		loadedCount++
	}

	logger.Debug().
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Msg("Platform override loading complete")

	return nil
}
