package platforms

import (
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/models"
)

// Registry holds the platform definitions and their outcome classifiers.
// Classifiers are registered separately from definitions so a platform's
// heuristics can be swapped without touching the definition data.
type Registry struct {
	definitions map[models.Platform]*Definition
	classifiers map[models.Platform]Classifier
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewRegistry creates a registry populated with the built-in definitions
func NewRegistry(logger arbor.ILogger) (*Registry, error) {
	r := &Registry{
		definitions: make(map[models.Platform]*Definition),
		classifiers: make(map[models.Platform]Classifier),
		logger:      logger,
	}

	for _, def := range []*Definition{
		bloggerDefinition(),
		tumblrDefinition(),
		livejournalDefinition(),
		typepadDefinition(),
	} {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register validates and installs a definition, replacing any existing one.
// The default snapshot classifier is installed alongside it unless a custom
// classifier was registered for the platform.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid platform definition: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.definitions[def.Platform] = def
	if _, ok := r.classifiers[def.Platform]; !ok {
		r.classifiers[def.Platform] = NewSnapshotClassifier(def)
	} else {
		// Existing custom classifier stays; rebuild only the default kind
		if _, isDefault := r.classifiers[def.Platform].(*SnapshotClassifier); isDefault {
			r.classifiers[def.Platform] = NewSnapshotClassifier(def)
		}
	}

	r.logger.Debug().
		Str("platform", def.Platform.String()).
		Msg("Platform definition registered")

	return nil
}

// RegisterClassifier swaps the outcome classifier for a platform
func (r *Registry) RegisterClassifier(platform models.Platform, c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifiers[platform] = c
}

// Definition returns the definition for a platform
func (r *Registry) Definition(platform models.Platform) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[platform]
	if !ok {
		return nil, fmt.Errorf("no definition registered for platform: %s", platform)
	}
	return def, nil
}

// Classifier returns the outcome classifier for a platform
func (r *Registry) Classifier(platform models.Platform) (Classifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.classifiers[platform]
	if !ok {
		return nil, fmt.Errorf("no classifier registered for platform: %s", platform)
	}
	return c, nil
}

// Platforms lists the registered platform identifiers
func (r *Registry) Platforms() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Platform, 0, len(r.definitions))
	for p := range r.definitions {
		out = append(out, p)
	}
	return out
}
