package config

import (
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFlagSet(t *testing.T) {
	for _, tt := range []struct {
		name    string
		flag    *listFlag
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "forwarded headers",
			flag:  commaListFlag(),
			input: "X-Forwarded-For,X-Forwarded-Proto",
			want:  []string{"X-Forwarded-For", "X-Forwarded-Proto"},
		},
		{
			name:  "custom separator",
			flag:  newListFlag(" "),
			input: "10.0.0.0/8 192.168.0.0/16",
			want:  []string{"10.0.0.0/8", "192.168.0.0/16"},
		},
		{
			name:  "allowed flavours",
			flag:  commaListFlag("codahale", "prometheus"),
			input: "prometheus,codahale",
			want:  []string{"prometheus", "codahale"},
		},
		{
			name:    "unknown flavour",
			flag:    commaListFlag("codahale", "prometheus"),
			input:   "codahale,statsd",
			wantErr: true,
		},
		{
			name:  "empty",
			flag:  commaListFlag("codahale", "prometheus"),
			input: "",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flag.Set(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tt.flag.values)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.flag.values)
			assert.Equal(t, tt.input, tt.flag.String())
		})
	}
}

func TestListFlagResetByEmptyValue(t *testing.T) {
	f := commaListFlag()
	require.NoError(t, f.Set("X-Forwarded-For"))
	require.NoError(t, f.Set(""))

	assert.Nil(t, f.values)
	assert.Empty(t, f.String())
}

func TestListFlagYAML(t *testing.T) {
	var cfg struct {
		Flavours *listFlag `yaml:"metrics-flavour"`
	}

	cfg.Flavours = commaListFlag("codahale", "prometheus")
	require.NoError(t, yaml.Unmarshal([]byte("metrics-flavour: [codahale, prometheus]"), &cfg))
	assert.Equal(t, []string{"codahale", "prometheus"}, cfg.Flavours.values)
	assert.Equal(t, "codahale,prometheus", cfg.Flavours.String())

	cfg.Flavours = commaListFlag("codahale", "prometheus")
	assert.Error(t, yaml.Unmarshal([]byte("metrics-flavour: [graphite]"), &cfg))

	cfg.Flavours = commaListFlag()
	assert.Error(t, yaml.Unmarshal([]byte("metrics-flavour: not a list"), &cfg))
}

func TestNilListFlag(t *testing.T) {
	var f *listFlag
	assert.NoError(t, f.Set("foo"))
	assert.Empty(t, f.String())
}
