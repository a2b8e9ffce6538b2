package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	keep := []Flag{Value("c"), Value("config"), Bool("dry-run")}

	cases := map[string]struct {
		args []string
		want []string
	}{
		"separate value":         {[]string{"-c", "conf.json", "--dsn", "app.db"}, []string{"-c", "conf.json"}},
		"equals form":            {[]string{"--config=alt.json", "--verbose"}, []string{"--config=alt.json"}},
		"single dash long name":  {[]string{"-config", "a.json"}, []string{"-config", "a.json"}},
		"bool keeps positionals": {[]string{"--dry-run", "obra-7"}, []string{"--dry-run"}},
		"bool with explicit":     {[]string{"--dry-run=false"}, []string{"--dry-run=false"}},
		"dash token not a value": {[]string{"-c", "-x"}, []string{"-c"}},
		"order kept":             {[]string{"-c", "1.json", "--dry-run", "-c", "2.json"}, []string{"-c", "1.json", "--dry-run", "-c", "2.json"}},
		"stops at terminator":    {[]string{"--", "-c", "x.json"}, []string{}},
		"unknown only":           {[]string{"-x", "1", "--y=2", "pos"}, []string{}},
		"nil":                    {nil, []string{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterArgs(tc.args, keep...))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/it.json", ConfigPath([]string{"-c", "/etc/it.json"}))
	assert.Equal(t, "/etc/a.json", ConfigPath([]string{"project", "list", "--config=/etc/a.json"}))
	assert.Equal(t, "2.json", ConfigPath([]string{"-c", "1.json", "--config", "2.json"}))
	assert.Empty(t, ConfigPath([]string{"sync", "--offline"}))
}
