package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Abtastverfahren für den Frame Sampler
const (
	PolicyFixedCount    = "fixed_count"    // feste Anzahl Frames pro Segment
	PolicyFixedInterval = "fixed_interval" // ein Frame pro Zeitintervall
)

// Detektortypen
const (
	MethodHaar = "haar" // OpenCV Haar-Kaskade (CPU)
	MethodDNN  = "dnn"  // OpenCV DNN, SSD-Gesichtsmodell
	MethodPigo = "pigo" // reines Go, ohne CGO
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Sampling   SamplingConfig   `mapstructure:"sampling"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Decision   DecisionConfig   `mapstructure:"decision"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"db"`
	Store      StoreConfig      `mapstructure:"store"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level    string `mapstructure:"level"`
	File     string `mapstructure:"file"`
	Format   string `mapstructure:"format"`   // "text" oder "json"
	Timezone string `mapstructure:"timezone"` // leer = TZ-Umgebungsvariable
}

// SamplingConfig controls which frames of a segment are handed to the detector.
type SamplingConfig struct {
	Policy     string  `mapstructure:"policy"`           // fixed_count | fixed_interval
	FrameCount int     `mapstructure:"frame_count"`      // K for fixed_count
	Interval   float64 `mapstructure:"interval_seconds"` // step for fixed_interval
	DefaultFPS float64 `mapstructure:"default_fps"`      // used when the video reports no rate
}

// DetectionConfig enthält Einstellungen für die Gesichtserkennung
type DetectionConfig struct {
	Method        string  `mapstructure:"method"`         // haar | dnn | pigo
	CascadePath   string  `mapstructure:"cascade_path"`   // Haar-Kaskade (XML)
	ModelPath     string  `mapstructure:"model_path"`     // DNN-Modelldatei
	ConfigPath    string  `mapstructure:"config_path"`    // DNN-Konfigurationsdatei
	MinConfidence float64 `mapstructure:"min_confidence"` // Schwellenwert für DNN und pigo
	ScaleFactor   float64 `mapstructure:"scale_factor"`   // Skalierungsfaktor für Multi-Scale-Detektion
	MinNeighbors  int     `mapstructure:"min_neighbors"`  // Minimum benachbarter Erkennungen
	MinSize       int     `mapstructure:"min_size"`       // minimale Gesichtsgröße in Pixeln
	MaxDimension  int     `mapstructure:"max_dimension"`  // Frames werden vorher auf diese Kantenlänge verkleinert
	MaxFaces      int     `mapstructure:"max_faces"`      // obere Grenze pro Frame, 0 = unbegrenzt

	UseGPU      bool   `mapstructure:"use_gpu"`      // DNN auf GPU ausführen, falls vorhanden
	Backend     string `mapstructure:"backend"`      // default | cuda | opencl
	Target      string `mapstructure:"target"`       // default | cpu | cuda | opencl
	DebugFrames int    `mapstructure:"debug_frames"` // annotierte Frames im Speicher, 0 = aus

	PigoCascadePath      string  `mapstructure:"pigo_cascade_path"`
	PigoIoUThreshold     float64 `mapstructure:"pigo_iou_threshold"`
	PigoQualityThreshold float64 `mapstructure:"pigo_quality_threshold"`
}

// DecisionConfig holds the count fallback and box limits.
type DecisionConfig struct {
	// ZeroFaceFallback is the face count used when no frame was readable or
	// the plurality of frames showed no face. Must be 0 or 1.
	ZeroFaceFallback     int     `mapstructure:"zero_face_fallback"`
	MaxBoxes             int     `mapstructure:"max_boxes"`
	DefaultSegmentLength float64 `mapstructure:"default_segment_length"` // end = start + this when end is missing
}

// ProcessingConfig enthält Einstellungen für die Segmentverarbeitung
type ProcessingConfig struct {
	Workers int `mapstructure:"workers"` // 1 = sequentiell, 0 = automatisch nach CPU-Anzahl
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DBConfig enthält Datenbankeinstellungen
type DBConfig struct {
	File string `mapstructure:"file"` // für SQLite
}

// StoreConfig controls persistence of analysis runs.
type StoreConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// defaults are static, this cannot fail at runtime
		panic(err)
	}
	return &cfg
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen, Flags und Standardwerten
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Standardwerte festlegen
	setDefaults(v)

	// Konfigurationsdatei laden, wenn vorhanden
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.SetEnvPrefix("FACESPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Sampling.Policy = strings.ToLower(cfg.Sampling.Policy)
	cfg.Detection.Method = strings.ToLower(cfg.Detection.Method)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// bindFlags maps CLI flags onto their config keys. Only flags the user
// actually set override the file and env values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	keys := map[string]string{
		"log-level": "log.level",
		"detector":  "detection.method",
		"workers":   "processing.workers",
		"port":      "server.port",
	}
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.timezone", "")

	// Sampling-Standardwerte
	v.SetDefault("sampling.policy", PolicyFixedCount)
	v.SetDefault("sampling.frame_count", 5)
	v.SetDefault("sampling.interval_seconds", 1.0)
	v.SetDefault("sampling.default_fps", 30.0)

	// Detektor-Standardwerte
	v.SetDefault("detection.method", MethodHaar)
	v.SetDefault("detection.cascade_path", filepath.Join("models", "opencv", "haarcascade_frontalface_default.xml"))
	v.SetDefault("detection.model_path", filepath.Join("models", "opencv", "res10_300x300_ssd_iter_140000.caffemodel"))
	v.SetDefault("detection.config_path", filepath.Join("models", "opencv", "deploy.prototxt"))
	v.SetDefault("detection.min_confidence", 0.5)
	v.SetDefault("detection.scale_factor", 1.1)
	v.SetDefault("detection.min_neighbors", 5)
	v.SetDefault("detection.min_size", 40)
	v.SetDefault("detection.max_dimension", 800)
	v.SetDefault("detection.max_faces", 0)
	v.SetDefault("detection.use_gpu", false)
	v.SetDefault("detection.backend", "default")
	v.SetDefault("detection.target", "default")
	v.SetDefault("detection.debug_frames", 0)
	v.SetDefault("detection.pigo_cascade_path", filepath.Join("models", "facefinder"))
	v.SetDefault("detection.pigo_iou_threshold", 0.2)
	v.SetDefault("detection.pigo_quality_threshold", 5.0)

	// Entscheidungs-Standardwerte
	v.SetDefault("decision.zero_face_fallback", 1)
	v.SetDefault("decision.max_boxes", 2)
	v.SetDefault("decision.default_segment_length", 30.0)

	v.SetDefault("processing.workers", 1)

	// Server-Standardwerte
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)

	v.SetDefault("db.file", filepath.Join("data", "facesplit.db"))
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.retention_days", 30)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "facesplit")
	v.SetDefault("mqtt.topic", "facesplit")
}

// Validate checks value ranges that would otherwise fail deep in the pipeline.
func (c *Config) Validate() error {
	switch c.Sampling.Policy {
	case PolicyFixedCount:
		if c.Sampling.FrameCount <= 0 {
			return fmt.Errorf("sampling.frame_count must be positive, got %d", c.Sampling.FrameCount)
		}
	case PolicyFixedInterval:
		if c.Sampling.Interval <= 0 {
			return fmt.Errorf("sampling.interval_seconds must be positive, got %v", c.Sampling.Interval)
		}
	default:
		return fmt.Errorf("unknown sampling.policy %q", c.Sampling.Policy)
	}
	if c.Sampling.DefaultFPS <= 0 {
		return fmt.Errorf("sampling.default_fps must be positive, got %v", c.Sampling.DefaultFPS)
	}

	switch c.Detection.Method {
	case MethodHaar, MethodDNN, MethodPigo:
	default:
		return fmt.Errorf("unknown detection.method %q", c.Detection.Method)
	}

	if c.Decision.ZeroFaceFallback != 0 && c.Decision.ZeroFaceFallback != 1 {
		return fmt.Errorf("decision.zero_face_fallback must be 0 or 1, got %d", c.Decision.ZeroFaceFallback)
	}
	if c.Decision.MaxBoxes < 1 || c.Decision.MaxBoxes > 2 {
		return fmt.Errorf("decision.max_boxes must be 1 or 2, got %d", c.Decision.MaxBoxes)
	}
	if c.Decision.DefaultSegmentLength <= 0 {
		return fmt.Errorf("decision.default_segment_length must be positive, got %v", c.Decision.DefaultSegmentLength)
	}

	if c.Processing.Workers < 0 {
		c.Processing.Workers = 1
	}
	return nil
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	// Datenbank-Verzeichnis (für SQLite), nur wenn der Store aktiv ist
	if cfg.Store.Enabled && cfg.DB.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.File), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
