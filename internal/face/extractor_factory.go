package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor/deepface"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor/mock"
)

// NewExtractor builds the face extractor selected by configuration. It is
// called once at startup and the result is shared by every pipeline.
//
// Environment variables:
//   - EXTRACTOR: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR: sidecar options
//   - EXTRACTOR_SERIALIZE: run one Detect call at a time
func NewExtractor(cfg *config.Config) (extractor.Extractor, error) {
	var ext extractor.Extractor

	switch cfg.Extractor {
	case config.ExtractorDeepFace, "":
		ext = createDeepFaceExtractor(cfg)
	case config.ExtractorMock:
		ext = mock.New(embeddingDim(cfg))
	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: %s, %s)",
			cfg.Extractor, config.ExtractorDeepFace, config.ExtractorMock)
	}

	if cfg.ExtractorSerialize {
		ext = extractor.Serialize(ext)
	}
	return ext, nil
}

func createDeepFaceExtractor(cfg *config.Config) *deepface.Extractor {
	dfConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		dfConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		dfConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		dfConfig.Detector = cfg.DeepFaceDetector
	}
	dfConfig.Dim = embeddingDim(cfg)

	return deepface.New(dfConfig)
}

func embeddingDim(cfg *config.Config) int {
	if cfg.EmbeddingDim > 0 {
		return cfg.EmbeddingDim
	}
	return 512
}
