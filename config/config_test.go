package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.15e11, cfg.BunchIntensityThreshold)
	assert.Equal(t, cfg.BunchIntensityThreshold, cfg.WindowIntensityThreshold)
	assert.Equal(t, 53.45, cfg.HalfCellLength)
	tag, found := cfg.IntegratedTag()
	assert.True(t, found)
	assert.Equal(t, "integrated", tag.Name)
	assert.Equal(t, []string{"end_of_squeeze", "stable_beams", "integrated"}, cfg.TagNames())
	assert.Len(t, cfg.RequiredChannels(), 8+len(cfg.HeatLoadChannels))
}

const sampleConfig = `[extraction]
bunch_intensity_threshold=2e10
half_cell_length=50
tags=squeeze:t_stop_SQUEEZE, whole:integrated
heat_load_channel_list=HL1,HL2

[run-selection]
blacklist=8000, 8002
required_phases=t_startfill

[channels]
impedance_loss=IMP

[data-source]
data-folders=/a, /b
store-file=/tmp/x.bin

[kafka]
broker=kafka:9092

[database]
uri=postgres://localhost/ecloud
`

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 2e10, cfg.BunchIntensityThreshold)
	// Follows the bunch threshold when not given
	assert.Equal(t, 2e10, cfg.WindowIntensityThreshold)
	assert.Equal(t, 50.0, cfg.HalfCellLength)
	assert.Equal(t, []Tag{
		{Name: "squeeze", Kind: InstantTag, Phase: "t_stop_SQUEEZE"},
		{Name: "whole", Kind: IntegratedTag},
	}, cfg.Tags)
	assert.Equal(t, []string{"HL1", "HL2"}, cfg.HeatLoadChannels)
	assert.Equal(t, map[int64]bool{8000: true, 8002: true}, cfg.Blacklist)
	assert.Equal(t, []string{"t_startfill"}, cfg.RequiredPhases)
	assert.Equal(t, "IMP", cfg.Channels.ImpedanceLoss)
	assert.Equal(t, "LHC.BQM.B2:BUNCH_LENGTHS", cfg.Channels.BunchLength[1])
	assert.Equal(t, []string{"/a", "/b"}, cfg.DataFolders)
	assert.Equal(t, "/tmp/x.bin", cfg.StoreFile)
	assert.Equal(t, "kafka:9092", cfg.KafkaBroker)
	assert.Equal(t, "ecloudframes", cfg.NotifyTopicPrefix)
	assert.Equal(t, "postgres://localhost/ecloud", cfg.DatabaseURI)
}

func TestReadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ecloud.ini")
	require.NoError(t, os.WriteFile(fn, []byte("[extraction]\nwindow_intensity_threshold=1e9\n"), 0644))
	cfg, err := ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, 1e9, cfg.WindowIntensityThreshold)
	assert.Equal(t, DefaultBunchIntensityThreshold, cfg.BunchIntensityThreshold)

	_, err = ReadFile(filepath.Join(t.TempDir(), "absent.ini"))
	assert.Error(t, err)
}

func TestReadErrors(t *testing.T) {
	for _, input := range []string{
		"[extraction]\nbunch_intensity_threshold=lots\n",
		"[extraction]\nhalf_cell_length=0\n",
		"[extraction]\nbunch_intensity_threshold=-1\n",
		"[extraction]\ntags=a:integrated,b:integrated\n",
		"[extraction]\ntags=a:p,a:q\n",
		"[extraction]\ntags=nophase\n",
		"[extraction]\ntags=\n",
		"[extraction]\nheat_load_channel_list=X,X\n",
		"[extraction]\nheat_load_channel_list=HL1,timestamp\n",
		"[extraction]\nheat_load_channel_list=bunch_length_b2_max\n",
		"[run-selection]\nblacklist=12,x\n",
		"[channels]\nbunch_length_b1=\n",
	} {
		_, err := Read(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}

func TestHeatLoadNameCollision(t *testing.T) {
	cfg := Default()
	cfg.HeatLoadChannels = []string{"timestamp"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")

	for _, name := range []string{"t_start", "duration", "sr_hl_halfcell", "intensity_b1", "n_bunches_b2",
		"bunch_intensity_b1_std", "bunch_length_b2_min"} {
		assert.True(t, EngineFeature(name), name)
	}
	for _, name := range []string{"QRLAB_16L2_QBS947.POSST", "intensity_b3", "bunch_intensity_b1_min", "HL1"} {
		assert.False(t, EngineFeature(name), name)
	}
}

func TestTagString(t *testing.T) {
	tags, err := ParseTags(" a : p1 ,b:integrated")
	require.NoError(t, err)
	assert.Equal(t, "a:p1", tags[0].String())
	assert.Equal(t, "b:integrated", tags[1].String())
}
