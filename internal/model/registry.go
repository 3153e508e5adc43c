package model

import (
	"fmt"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/errgroup"
)

// Registry holds the two classifiers served by the API.
type Registry struct {
	Brain *Server
	Lung  *Server
}

type RegistryConfig struct {
	BrainModelPath string
	LungModelPath  string
	OnnxRuntimeLib string
	Session        SessionConfig
}

// LoadRegistry initializes ONNX Runtime and loads both models in parallel. Any
// failure releases what was created and is returned; the caller should treat
// it as fatal.
func LoadRegistry(cfg RegistryConfig) (*Registry, error) {
	for _, path := range []string{cfg.BrainModelPath, cfg.LungModelPath} {
		if err := checkArtifact(path); err != nil {
			return nil, err
		}
	}

	if cfg.OnnxRuntimeLib != "" {
		ort.SetSharedLibraryPath(cfg.OnnxRuntimeLib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	var (
		registry Registry
		g        errgroup.Group
	)
	g.Go(func() error {
		server, err := NewServer(BrainSpec(cfg.BrainModelPath), cfg.Session)
		registry.Brain = server
		return err
	})
	g.Go(func() error {
		server, err := NewServer(LungSpec(cfg.LungModelPath), cfg.Session)
		registry.Lung = server
		return err
	})

	if err := g.Wait(); err != nil {
		registry.Close()
		return nil, err
	}
	return &registry, nil
}

// Close releases both sessions and the ONNX environment.
func (r *Registry) Close() {
	if r.Brain != nil {
		r.Brain.Close()
	}
	if r.Lung != nil {
		r.Lung.Close()
	}
	if err := ort.DestroyEnvironment(); err != nil {
		log.Warn().Err(err).Msg("Failed to destroy ONNX environment")
	}
}
