package config

// Default returns the configuration baseline that Load overlays the file
// onto. The device section has no useful defaults; a config file must
// supply the port and sensors.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			Prediction: PredictionConfig{
				Suggestions: 5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
