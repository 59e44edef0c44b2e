// Engine configuration.
//
// The configuration file is an ini file (see github.com/lars-t-hansen/ini for the grammar) with the
// sections below.  Every key is optional, absent keys keep their default values.  Lists are
// comma-separated, blanks around elements are ignored.
//
//   [extraction]
//   # Filled-slot cutoff, a slot is filled if its intensity is strictly greater
//   bunch_intensity_threshold = 1.5e10
//   # Default: bunch_intensity_threshold
//   window_intensity_threshold = 1.5e10
//   # Metres
//   half_cell_length = 53.45
//   tags = end_of_squeeze:t_stop_SQUEEZE, integrated:integrated
//   heat_load_channel_list = S12_QBS_AVG_ARC.POSST, S23_QBS_AVG_ARC.POSST
//
//   [run-selection]
//   blacklist = 8000, 8001
//   required_phases = t_startfill
//
//   [channels]
//   beam_intensity_b1 = LHC.BCTDC.A6R4.B1:BEAM_INTENSITY
//   beam_intensity_b2 = LHC.BCTDC.A6R4.B2:BEAM_INTENSITY
//   bunch_intensity_b1 = LHC.BCTFR.A6R4.B1:BUNCH_INTENSITY
//   bunch_intensity_b2 = LHC.BCTFR.A6R4.B2:BUNCH_INTENSITY
//   bunch_length_b1 = LHC.BQM.B1:BUNCH_LENGTHS
//   bunch_length_b2 = LHC.BQM.B2:BUNCH_LENGTHS
//   # Modeled losses per metre
//   impedance_loss = ARC_AVG_IMPEDANCE_HL_PER_M
//   synchrotron_loss = ARC_AVG_SYNCHROTRON_HL_PER_M
//
//   [data-source]
//   data-folders = /data/2022, /data/2023
//   store-file = ecloud_dataframes.bin
//
//   [kafka]
//   broker = localhost:9092
//   notify-topic-prefix = ecloudframes
//   trigger-topic = ecloudframes.runs
//
//   [database]
//   uri = postgres://ecloud@localhost/ecloud
//
// A tag is `name:phase` for an instant tag bound to the phase timestamp `phase`, or
// `name:integrated` for the integrated tag.  Tag order is significant, it is the order of
// extraction for each run.

package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	ini "github.com/lars-t-hansen/ini"
)

type TagKind int

const (
	InstantTag TagKind = iota
	IntegratedTag
)

const integratedKeyword = "integrated"

type Tag struct {
	Name  string
	Kind  TagKind
	Phase string // Only for InstantTag
}

func (t Tag) String() string {
	if t.Kind == IntegratedTag {
		return t.Name + ":" + integratedKeyword
	}
	return t.Name + ":" + t.Phase
}

// Names of the channels the extraction needs from every run.  Index 0 is beam 1, index 1 is
// beam 2.
type Channels struct {
	BeamIntensity   [2]string
	BunchIntensity  [2]string
	BunchLength     [2]string
	ImpedanceLoss   string
	SynchrotronLoss string
}

type Config struct {
	BunchIntensityThreshold  float64
	WindowIntensityThreshold float64
	HalfCellLength           float64
	Tags                     []Tag
	HeatLoadChannels         []string
	Blacklist                map[int64]bool
	RequiredPhases           []string
	Channels                 Channels

	DataFolders       []string
	StoreFile         string
	KafkaBroker       string
	NotifyTopicPrefix string
	TriggerTopic      string
	DatabaseURI       string
}

const (
	DefaultBunchIntensityThreshold = 0.15e11
	DefaultHalfCellLength          = 53.45
	DefaultStoreFile               = "ecloud_dataframes.bin"
)

func Default() *Config {
	return &Config{
		BunchIntensityThreshold:  DefaultBunchIntensityThreshold,
		WindowIntensityThreshold: DefaultBunchIntensityThreshold,
		HalfCellLength:           DefaultHalfCellLength,
		Tags: []Tag{
			{Name: "end_of_squeeze", Kind: InstantTag, Phase: "t_stop_SQUEEZE"},
			{Name: "stable_beams", Kind: InstantTag, Phase: "t_start_STABLE"},
			{Name: "integrated", Kind: IntegratedTag},
		},
		HeatLoadChannels: []string{
			"S12_QBS_AVG_ARC.POSST",
			"S23_QBS_AVG_ARC.POSST",
			"S34_QBS_AVG_ARC.POSST",
			"S45_QBS_AVG_ARC.POSST",
			"S56_QBS_AVG_ARC.POSST",
			"S67_QBS_AVG_ARC.POSST",
			"S78_QBS_AVG_ARC.POSST",
			"S81_QBS_AVG_ARC.POSST",
		},
		Blacklist: make(map[int64]bool),
		Channels: Channels{
			BeamIntensity: [2]string{
				"LHC.BCTDC.A6R4.B1:BEAM_INTENSITY",
				"LHC.BCTDC.A6R4.B2:BEAM_INTENSITY",
			},
			BunchIntensity: [2]string{
				"LHC.BCTFR.A6R4.B1:BUNCH_INTENSITY",
				"LHC.BCTFR.A6R4.B2:BUNCH_INTENSITY",
			},
			BunchLength: [2]string{
				"LHC.BQM.B1:BUNCH_LENGTHS",
				"LHC.BQM.B2:BUNCH_LENGTHS",
			},
			ImpedanceLoss:   "ARC_AVG_IMPEDANCE_HL_PER_M",
			SynchrotronLoss: "ARC_AVG_SYNCHROTRON_HL_PER_M",
		},
		StoreFile:         DefaultStoreFile,
		NotifyTopicPrefix: "ecloudframes",
		TriggerTopic:      "ecloudframes.runs",
	}
}

// MT: Constant after initialization
var (
	p = ini.NewParser()

	extraction               = p.AddSection("extraction")
	bunchIntensityThreshold  = extraction.AddString("bunch_intensity_threshold")
	windowIntensityThreshold = extraction.AddString("window_intensity_threshold")
	halfCellLength           = extraction.AddString("half_cell_length")
	tags                     = extraction.AddString("tags")
	heatLoadChannelList      = extraction.AddString("heat_load_channel_list")

	runSelection   = p.AddSection("run-selection")
	blacklist      = runSelection.AddString("blacklist")
	requiredPhases = runSelection.AddString("required_phases")

	channels        = p.AddSection("channels")
	beamIntensityB1 = channels.AddString("beam_intensity_b1")
	beamIntensityB2 = channels.AddString("beam_intensity_b2")
	bunchIntensity1 = channels.AddString("bunch_intensity_b1")
	bunchIntensity2 = channels.AddString("bunch_intensity_b2")
	bunchLengthB1   = channels.AddString("bunch_length_b1")
	bunchLengthB2   = channels.AddString("bunch_length_b2")
	impedanceLoss   = channels.AddString("impedance_loss")
	synchrotronLoss = channels.AddString("synchrotron_loss")

	dataSource  = p.AddSection("data-source")
	dataFolders = dataSource.AddString("data-folders")
	storeFile   = dataSource.AddString("store-file")

	kafka             = p.AddSection("kafka")
	kafkaBroker       = kafka.AddString("broker")
	notifyTopicPrefix = kafka.AddString("notify-topic-prefix")
	triggerTopic      = kafka.AddString("trigger-topic")

	database    = p.AddSection("database")
	databaseURI = database.AddString("uri")
)

func ReadFile(filename string) (*Config, error) {
	input, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Opening config file: %w", err)
	}
	defer input.Close()
	cfg, err := Read(input)
	if err != nil {
		return nil, fmt.Errorf("Config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Read a configuration, starting from the defaults.  The result is validated.
func Read(input io.Reader) (*Config, error) {
	store, err := p.Parse(input)
	if err != nil {
		return nil, err
	}
	cfg := Default()

	str := func(f *ini.Field, dest *string) {
		if f.Present(store) {
			*dest = strings.TrimSpace(f.StringVal(store))
		}
	}
	num := func(f *ini.Field, name string, dest *float64) error {
		if !f.Present(store) {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f.StringVal(store)), 64)
		if err != nil {
			return fmt.Errorf("Bad number for %s: %w", name, err)
		}
		*dest = v
		return nil
	}
	list := func(f *ini.Field, dest *[]string) {
		if f.Present(store) {
			*dest = splitList(f.StringVal(store))
		}
	}

	e1 := num(bunchIntensityThreshold, "bunch_intensity_threshold", &cfg.BunchIntensityThreshold)
	cfg.WindowIntensityThreshold = cfg.BunchIntensityThreshold
	e2 := num(windowIntensityThreshold, "window_intensity_threshold", &cfg.WindowIntensityThreshold)
	e3 := num(halfCellLength, "half_cell_length", &cfg.HalfCellLength)
	var e4, e5 error
	if tags.Present(store) {
		cfg.Tags, e4 = ParseTags(tags.StringVal(store))
	}
	list(heatLoadChannelList, &cfg.HeatLoadChannels)
	if blacklist.Present(store) {
		cfg.Blacklist, e5 = ParseRunSet(blacklist.StringVal(store))
	}
	list(requiredPhases, &cfg.RequiredPhases)

	str(beamIntensityB1, &cfg.Channels.BeamIntensity[0])
	str(beamIntensityB2, &cfg.Channels.BeamIntensity[1])
	str(bunchIntensity1, &cfg.Channels.BunchIntensity[0])
	str(bunchIntensity2, &cfg.Channels.BunchIntensity[1])
	str(bunchLengthB1, &cfg.Channels.BunchLength[0])
	str(bunchLengthB2, &cfg.Channels.BunchLength[1])
	str(impedanceLoss, &cfg.Channels.ImpedanceLoss)
	str(synchrotronLoss, &cfg.Channels.SynchrotronLoss)

	list(dataFolders, &cfg.DataFolders)
	str(storeFile, &cfg.StoreFile)
	str(kafkaBroker, &cfg.KafkaBroker)
	str(notifyTopicPrefix, &cfg.NotifyTopicPrefix)
	str(triggerTopic, &cfg.TriggerTopic)
	str(databaseURI, &cfg.DatabaseURI)

	if err := errors.Join(e1, e2, e3, e4, e5); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	result := make([]string, 0)
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			result = append(result, x)
		}
	}
	return result
}

// Parse `name:phase, name:integrated, ...`.
func ParseTags(s string) ([]Tag, error) {
	result := make([]Tag, 0)
	for _, x := range splitList(s) {
		name, phase, found := strings.Cut(x, ":")
		name, phase = strings.TrimSpace(name), strings.TrimSpace(phase)
		if !found || name == "" || phase == "" {
			return nil, fmt.Errorf("Bad tag %q, expected name:phase or name:%s", x, integratedKeyword)
		}
		if phase == integratedKeyword {
			result = append(result, Tag{Name: name, Kind: IntegratedTag})
		} else {
			result = append(result, Tag{Name: name, Kind: InstantTag, Phase: phase})
		}
	}
	return result, nil
}

func ParseRunSet(s string) (map[int64]bool, error) {
	result := make(map[int64]bool)
	for _, x := range splitList(s) {
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Bad run number %q", x)
		}
		result[n] = true
	}
	return result, nil
}

func (cfg *Config) Validate() error {
	var es []error
	finite := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			es = append(es, fmt.Errorf("%s must be finite and non-negative", name))
		}
	}
	finite("bunch_intensity_threshold", cfg.BunchIntensityThreshold)
	finite("window_intensity_threshold", cfg.WindowIntensityThreshold)
	finite("half_cell_length", cfg.HalfCellLength)
	if cfg.HalfCellLength == 0 {
		es = append(es, errors.New("half_cell_length must be positive"))
	}

	if len(cfg.Tags) == 0 {
		es = append(es, errors.New("No tags configured"))
	}
	seen := make(map[string]bool)
	integrated := 0
	for _, t := range cfg.Tags {
		if seen[t.Name] {
			es = append(es, fmt.Errorf("Duplicate tag %s", t.Name))
		}
		seen[t.Name] = true
		if t.Kind == IntegratedTag {
			integrated++
		}
	}
	if integrated > 1 {
		es = append(es, errors.New("At most one integrated tag is allowed"))
	}

	for _, name := range cfg.Channels.names() {
		if name == "" {
			es = append(es, errors.New("Channel names must be non-empty"))
			break
		}
	}
	channelSeen := make(map[string]bool)
	for _, name := range cfg.HeatLoadChannels {
		if channelSeen[name] {
			es = append(es, fmt.Errorf("Duplicate heat load channel %s", name))
		}
		channelSeen[name] = true
		// Heat loads are stored under their channel name, next to the computed features.
		if EngineFeature(name) {
			es = append(es, fmt.Errorf("Heat load channel %s collides with a computed feature", name))
		}
	}
	return errors.Join(es...)
}

var engineFeatures = map[string]bool{
	"timestamp":             true,
	"t_start":               true,
	"t_stop":                true,
	"duration":              true,
	"impedance_hl_halfcell": true,
	"sr_hl_halfcell":        true,
}

// Per-beam features are named <base>_b1 and <base>_b2, optionally followed by a statistic.
var perBeamFeatures = map[string][]string{
	"intensity":       {""},
	"n_bunches":       {""},
	"bunch_intensity": {"", "_mean", "_std"},
	"bunch_length":    {"", "_mean", "_std", "_min", "_max"},
}

// EngineFeature is true if name is a feature the extractor computes itself, in any row kind.
func EngineFeature(name string) bool {
	if engineFeatures[name] {
		return true
	}
	for base, suffixes := range perBeamFeatures {
		for _, beam := range []string{"_b1", "_b2"} {
			for _, suffix := range suffixes {
				if name == base+beam+suffix {
					return true
				}
			}
		}
	}
	return false
}

func (c *Channels) names() []string {
	return []string{
		c.BeamIntensity[0], c.BeamIntensity[1],
		c.BunchIntensity[0], c.BunchIntensity[1],
		c.BunchLength[0], c.BunchLength[1],
		c.ImpedanceLoss, c.SynchrotronLoss,
	}
}

// All channel names required for a run: the fixed channels followed by the heat load channels.
func (cfg *Config) RequiredChannels() []string {
	return append(cfg.Channels.names(), cfg.HeatLoadChannels...)
}

func (cfg *Config) IntegratedTag() (Tag, bool) {
	for _, t := range cfg.Tags {
		if t.Kind == IntegratedTag {
			return t, true
		}
	}
	return Tag{}, false
}

func (cfg *Config) TagNames() []string {
	names := make([]string, len(cfg.Tags))
	for i, t := range cfg.Tags {
		names[i] = t.Name
	}
	return names
}
