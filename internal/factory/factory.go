package factory

import (
	"fmt"
	"strings"

	"go-redflag-detector/internal/config"
	"go-redflag-detector/internal/extractor"
	"go-redflag-detector/internal/generator"
	"go-redflag-detector/internal/reconciler"
	"go-redflag-detector/internal/scorer"
	"go-redflag-detector/internal/storage"
)

// StorageType represents the image source backends
type StorageType string

const (
	// HTTPStorage for plain HTTP(S) screenshot URLs
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage URLs
	AzureStorage StorageType = "azure"
)

// EngineFactory creates OCR engines
type EngineFactory interface {
	CreateEngine(cfg config.OCRConfig) (extractor.Engine, error)
}

// StorageFactory creates image sources
type StorageFactory interface {
	CreateStorage(storageType StorageType, cfg config.ImageConfig) (storage.ImageSource, error)
}

type engineFactory struct{}

func NewEngineFactory() EngineFactory {
	return &engineFactory{}
}

// CreateEngine picks the OCR backend named in the config
func (f *engineFactory) CreateEngine(cfg config.OCRConfig) (extractor.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case config.OCREngineTesseract, "":
		var languages []string
		if lang := strings.TrimSpace(cfg.Language); lang != "" {
			languages = append(languages, lang)
		}
		return extractor.NewTesseractEngine(languages...), nil
	case config.OCREngineNone:
		return extractor.NoopEngine{}, nil
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", cfg.Engine)
	}
}

type storageFactory struct{}

func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

func (f *storageFactory) CreateStorage(storageType StorageType, cfg config.ImageConfig) (storage.ImageSource, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageSource(cfg.FetchTimeout), nil
	case AzureStorage:
		source, err := storage.NewAzureBlobSource(cfg.AzureAccount, cfg.AzureKey)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	EngineFactory  EngineFactory
	StorageFactory StorageFactory
}

func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		EngineFactory:  NewEngineFactory(),
		StorageFactory: NewStorageFactory(),
	}
}

// CreateImageSource builds the HTTP source and, when credentials are set,
// the Azure source behind a router.
func (f *ComponentFactory) CreateImageSource(cfg config.Config) (storage.ImageSource, error) {
	httpSource, err := f.StorageFactory.CreateStorage(HTTPStorage, cfg.Images)
	if err != nil {
		return nil, err
	}
	if !cfg.AzureEnabled() {
		return storage.NewRouter(httpSource, nil), nil
	}

	azureSource, err := f.StorageFactory.CreateStorage(AzureStorage, cfg.Images)
	if err != nil {
		return nil, fmt.Errorf("create azure image source: %w", err)
	}
	return storage.NewRouter(httpSource, azureSource), nil
}

// CreateReconciler wires the webhook scorer when a URL is configured
func (f *ComponentFactory) CreateReconciler(cfg config.ScoringConfig, gen *generator.Generator) *reconciler.Reconciler {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return reconciler.New(nil, gen)
	}
	return reconciler.New(scorer.NewWebhookScorer(cfg.WebhookURL, cfg.Timeout), gen)
}
