package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/timeutil"
)

const (
	configName = "campusctl"
	configType = "toml"
	envPrefix  = "CAMPUSCTL"

	keyTimezone      = "timezone"
	keyTimetable     = "timetable"
	keyICSFile       = "ics_file"
	keyHolidayDay    = "rules.holiday_weekday"
	keyOpenHour      = "rules.open_hour"
	keyCloseHour     = "rules.close_hour"
	keyCloseHourOpen = "rules.close_hour_open"
)

func tableKey(kind directory.Kind) string {
	return "tables." + string(kind)
}

// Settings is the resolved campusctl configuration. File paths are
// absolute or relative to the config file's directory.
type Settings struct {
	Location  *time.Location
	Tables    map[directory.Kind]string
	Timetable string
	ICSFile   string
	Rules     *availability.OperatingRules
}

// LoadSettings reads campusctl.toml from path, or from the working
// directory and the user config directory when path is empty. A missing
// file is not an error; CAMPUSCTL_* variables still apply.
func LoadSettings(v *viper.Viper, path string) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetDefault(keyHolidayDay, "Sunday")
	v.SetDefault(keyOpenHour, 7)
	v.SetDefault(keyCloseHour, 17)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "campus-assist"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	base := "."
	if used := v.ConfigFileUsed(); used != "" {
		base = filepath.Dir(used)
	}
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	loc, err := timeutil.LoadLocation(v.GetString(keyTimezone))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyTimezone, err)
	}

	s := &Settings{
		Location:  loc,
		Tables:    make(map[directory.Kind]string),
		Timetable: resolve(v.GetString(keyTimetable)),
		ICSFile:   resolve(v.GetString(keyICSFile)),
	}
	for _, kind := range directory.Kinds {
		if p := resolve(v.GetString(tableKey(kind))); p != "" {
			s.Tables[kind] = p
		}
	}
	if s.Timetable != "" && s.ICSFile != "" {
		return nil, fmt.Errorf("set only one of %s and %s", keyTimetable, keyICSFile)
	}

	s.Rules, err = rulesFrom(v)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// rulesFrom reads the operating rules. "none" or an empty value turns a
// rule off.
func rulesFrom(v *viper.Viper) (*availability.OperatingRules, error) {
	rules := &availability.OperatingRules{CloseHourOpen: v.GetBool(keyCloseHourOpen)}

	if raw := v.GetString(keyHolidayDay); !disabled(raw) {
		day, err := availability.ParseWeekday(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyHolidayDay, err)
		}
		rules.HolidayWeekday = &day
	}

	var errs []error
	hour := func(key string) *int {
		raw := v.GetString(key)
		if disabled(raw) {
			return nil
		}
		h, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid hour %q", key, raw))
			return nil
		}
		return &h
	}
	rules.OpenHour = hour(keyOpenHour)
	rules.CloseHour = hour(keyCloseHour)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func disabled(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	return v == "" || v == "none" || v == "off"
}
