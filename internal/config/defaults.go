package config

const (
	defaultInputDir          = "~/data/ephys"
	defaultOutputDir         = "~/data/nwbconv/exports"
	defaultLogDir            = "~/.local/share/nwbconv/logs"
	defaultLogRetentionDays  = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultChannelWidth      = 3
	defaultUnitWidth         = 4
	defaultSamplingRate      = 30000
	defaultWaveformSamples   = 82
	defaultPitchUM           = 25
	defaultShankSpacingUM    = 250
	defaultEyeTrackingKey    = "eyeTracking"
	defaultMotionTrackingKey = "motionTracking"
	defaultConvertJobs       = 1
)

// Default returns a Config populated with repository defaults. Probes have
// no sensible default and must come from the configuration file.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Identifiers: Identifiers{
			ChannelWidth: defaultChannelWidth,
			UnitWidth:    defaultUnitWidth,
		},
		Recording: Recording{
			SamplingRate: defaultSamplingRate,
		},
		MetadataColumns: MetadataColumns{
			ClusterID:         0,
			Channel:           1,
			Horizontal:        2,
			Vertical:          3,
			ISIViolation:      4,
			IsolationDistance: 5,
		},
		Behavior: Behavior{
			EyeTracking: Stream{
				Key:         defaultEyeTrackingKey,
				Name:        "EyeTracking",
				Description: "pupil position from the eye camera",
				Unit:        "degrees",
			},
			MotionTracking: Stream{
				Key:         defaultMotionTrackingKey,
				Name:        "MotionTracking",
				Description: "head motion from the tracking system",
				Unit:        "cm",
			},
		},
		Waveforms: Waveforms{
			Enabled: true,
			Samples: defaultWaveformSamples,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Convert: Convert{
			Jobs: defaultConvertJobs,
		},
	}
}
