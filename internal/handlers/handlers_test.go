package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Brownie44l1/medscan-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner returns the mean red value times the class index as logits.
type stubRunner struct {
	classes int
	err     error
}

func (r stubRunner) Run(input []float32) ([]float32, error) {
	if r.err != nil {
		return nil, r.err
	}
	var mean float32
	for i := 0; i < len(input); i += 3 {
		mean += input[i]
	}
	mean /= float32(len(input) / 3)
	out := make([]float32, r.classes)
	for i := range out {
		out[i] = mean * float32(i)
	}
	return out, nil
}

func (stubRunner) Close() error { return nil }

type predictResponse struct {
	Top    string             `json:"top"`
	TopIdx int                `json:"top_idx"`
	Conf   float64            `json:"conf"`
	Labels []string           `json:"labels"`
	Probs  map[string]float64 `json:"probs"`
}

func newTestRouter(brainRunner, lungRunner model.Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	brain := model.NewServerWithRunner(model.BrainSpec("brain/artifacts/best_xception.onnx"), model.LayoutNHWC, brainRunner)
	lung := model.NewServerWithRunner(model.LungSpec("lung/artifacts/effnetv2b0_final.onnx"), model.LayoutNHWC, lungRunner)
	h := NewHandler(brain, lung)

	r := gin.New()
	r.GET("/health", h.Health)
	r.POST("/api/brain/predict", h.PredictBrain)
	r.POST("/api/lung/predict", h.PredictLung)
	return r
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "scan.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func checkDistribution(t *testing.T, res predictResponse, labels []string) {
	t.Helper()
	assert.Equal(t, labels, res.Labels)
	require.Len(t, res.Probs, len(labels))

	var total, best float64
	bestIdx := -1
	for i, label := range labels {
		p, ok := res.Probs[label]
		require.True(t, ok, label)
		total += p
		if bestIdx < 0 || p > best {
			best, bestIdx = p, i
		}
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Equal(t, bestIdx, res.TopIdx)
	assert.Equal(t, labels[bestIdx], res.Top)
	assert.Equal(t, best, res.Conf)
}

func TestPredictEndpoints(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4}, stubRunner{classes: 5})
	data := pngBytes(t, color.NRGBA{R: 255, G: 10, B: 10, A: 255})

	tests := []struct {
		target string
		labels []string
		top    string
	}{
		{"/api/brain/predict", model.BrainLabels, "pituitary"},
		{"/api/lung/predict", model.LungLabels, "Viral Pneumonia"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartRequest(t, tt.target, "image", data))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var res predictResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			checkDistribution(t, res, tt.labels)
			assert.Equal(t, tt.top, res.Top)
		})
	}
}

func TestPredictSameImageTwiceIsIdentical(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4}, stubRunner{classes: 5})
	data := pngBytes(t, color.NRGBA{R: 90, G: 200, B: 30, A: 255})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, multipartRequest(t, "/api/brain/predict", "image", data))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, multipartRequest(t, "/api/brain/predict", "image", data))

	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestPredictImageMissing(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4}, stubRunner{classes: 5})
	data := pngBytes(t, color.White)

	for _, target := range []string{"/api/brain/predict", "/api/lung/predict"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, multipartRequest(t, target, "file", data))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "image missing"}`, w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "image missing"}`, w.Body.String())
	}
}

func TestPredictUndecodableImage(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4}, stubRunner{classes: 5})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "/api/brain/predict", "image", []byte("not an image")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestPredictInferenceFailure(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4, err: errors.New("session lost")}, stubRunner{classes: 5})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "/api/brain/predict", "image", pngBytes(t, color.White)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "prediction failed"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(stubRunner{classes: 4}, stubRunner{classes: 5})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res model.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "best_xception.onnx", res.Brain.Model)
	assert.Equal(t, model.BrainLabels, res.Brain.Labels)
	assert.Equal(t, "effnetv2b0_final.onnx", res.Lung.Model)
	assert.Equal(t, model.LungLabels, res.Lung.Labels)
}

func TestHealthWithMissingClassifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lung := model.NewServerWithRunner(model.LungSpec("lung/artifacts/effnetv2b0_final.onnx"), model.LayoutNHWC, stubRunner{classes: 5})
	h := NewHandler(nil, lung)

	r := gin.New()
	r.GET("/health", h.Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res model.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Empty(t, res.Brain.Model)
	assert.Equal(t, model.LungLabels, res.Lung.Labels)
}
