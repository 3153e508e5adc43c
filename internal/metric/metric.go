package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
)

const (
	ApiRequestCount   = "api_request_count"
	ApiRequestLatency = "api_request_latency"
	InferenceLatency  = "inference_latency"
	PredictionCount   = "prediction_count"
	ModelDownloadSize = "model_download_bytes"
)

const (
	TagEnv            = "env"
	TagService        = "service"
	TagPath           = "path"
	TagMethod         = "method"
	TagHttpStatusCode = "http_status_code"
	TagModel          = "model"
	TagLabel          = "label"
)

var (
	// it is safe to use one client from multiple goroutines simultaneously
	statsDClient statsd.ClientInterface = &statsd.NoOpClient{}
	samplingRate                        = 1.0
	once         sync.Once
)

// Init connects the statsd client. Before Init every call is a no-op.
func Init(address, appName, env string, rate float64) {
	once.Do(func() {
		client, err := statsd.New(address, statsd.WithTags([]string{
			TagAsString(TagEnv, env),
			TagAsString(TagService, appName),
		}))
		if err != nil {
			log.Error().Err(err).Msg("StatsD client initialization failed, metrics disabled")
			return
		}
		statsDClient = client
		samplingRate = rate
		log.Info().Msgf("Metrics client initialized with address - %s and sampling rate - %f", address, rate)
	})
}

// Close flushes buffered metrics.
func Close() {
	if err := statsDClient.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing statsd client")
	}
}

func Timing(name string, value time.Duration, tags []string) {
	if err := statsDClient.Timing(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd timing")
	}
}

func Count(name string, value int64, tags []string) {
	if err := statsDClient.Count(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd count")
	}
}

func Incr(name string, tags []string) {
	Count(name, 1, tags)
}

func TagAsString(key, value string) string {
	return key + ":" + value
}
