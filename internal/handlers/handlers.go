package handlers

import (
	"image"
	"io"
	"net/http"

	"github.com/Brownie44l1/medscan-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const imageField = "image"

// Predictor is a loaded classifier.
type Predictor interface {
	Info() model.ModelInfo
	Predict(img image.Image) (*model.PredictionResponse, error)
}

type Handler struct {
	brain Predictor
	lung  Predictor
}

func NewHandler(brain, lung Predictor) *Handler {
	return &Handler{
		brain: brain,
		lung:  lung,
	}
}

// Health reports ok:false when either classifier is missing.
func (h *Handler) Health(c *gin.Context) {
	res := model.HealthResponse{OK: h.brain != nil && h.lung != nil}
	if h.brain != nil {
		res.Brain = h.brain.Info()
	}
	if h.lung != nil {
		res.Lung = h.lung.Info()
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) PredictBrain(c *gin.Context) {
	h.predict(c, h.brain)
}

func (h *Handler) PredictLung(c *gin.Context) {
	h.predict(c, h.lung)
}

func (h *Handler) predict(c *gin.Context, predictor Predictor) {
	header, err := c.FormFile(imageField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image missing"})
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	img, format, err := model.Decode(data)
	if err != nil {
		log.Error().Err(err).Msgf("Undecodable upload %s (%d bytes)", header.Filename, len(data))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode image"})
		return
	}
	log.Debug().Msgf("Received %s: %s, %dx%d", header.Filename, format, img.Bounds().Dx(), img.Bounds().Dy())

	result, err := predictor.Predict(img)
	if err != nil {
		log.Error().Err(err).Msg("Prediction error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
