package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	session    interfaces.SessionStorage
	connection interfaces.ConnectionStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, sealer *Sealer) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		session:    NewSessionStorage(db, sealer, logger),
		connection: NewConnectionStorage(db, sealer, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SessionStorage returns the Session storage interface
func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

// ConnectionStorage returns the Connection storage interface
func (m *Manager) ConnectionStorage() interfaces.ConnectionStorage {
	return m.connection
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
