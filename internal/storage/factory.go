package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/storage/badger"
)

// NewStorageManager creates a new storage manager based on config.
// Cookie jars and stored credentials are sealed at rest when a session key
// is configured.
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	sealer, err := badger.NewSealer(config.SessionKeyBytes())
	if err != nil {
		return nil, err
	}
	return badger.NewManager(logger, &config.Storage.Badger, sealer)
}
