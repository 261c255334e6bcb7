package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-assist-go/internal/availability"
	"github.com/garyellow/campus-assist-go/internal/directory"
)

const facultyCSV = `Name,Department,Subject,Role,Room
Dr. Anil Sharma,CSE,Data Structures,Professor,A-204
Meera Iyer,Physics,Optics,Lecturer,B-110
Nobody,ECE,Signals,Lecturer,
`

const timetableYAML = `entries:
  - faculty: Dr. Anil Sharma
    schedule:
      - day: Monday
        start_time: "10:00"
        end_time: "11:00"
`

const servicesJSON = `[
  {"Service": "Fee Payment", "Office": "Accounts", "Room": "Admin-1", "Description": "Tuition fees"}
]`

func writeFixture(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"faculty.csv":    facultyCSV,
		"services.json":  servicesJSON,
		"timetable.yaml": timetableYAML,
		"campusctl.toml": `timezone = "Asia/Kolkata"
timetable = "timetable.yaml"

[tables]
faculty = "faculty.csv"
services = "services.json"

[rules]
holiday_weekday = "Sunday"
open_hour = 7
close_hour = 17
` + extra,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return filepath.Join(dir, "campusctl.toml")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	// Monday 19 Oct 2026, 10:30 IST.
	now := func() time.Time { return time.Date(2026, time.October, 19, 5, 0, 0, 0, time.UTC) }
	cmd := newRootCmd(now)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLoadSettings(t *testing.T) {
	path := writeFixture(t, "")

	s, err := LoadSettings(viper.New(), path)
	require.NoError(t, err)
	_, offset := time.Date(2026, time.January, 1, 0, 0, 0, 0, s.Location).Zone()
	assert.Equal(t, 5*3600+30*60, offset)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "faculty.csv"), s.Tables[directory.KindFaculty])
	assert.NotContains(t, s.Tables, directory.KindLabs)
	require.NotNil(t, s.Rules.HolidayWeekday)
	assert.Equal(t, availability.Sunday, *s.Rules.HolidayWeekday)
	assert.Equal(t, 7, *s.Rules.OpenHour)
	assert.Equal(t, 17, *s.Rules.CloseHour)
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	path := writeFixture(t, "")
	t.Setenv("CAMPUSCTL_RULES_HOLIDAY_WEEKDAY", "none")

	s, err := LoadSettings(viper.New(), path)
	require.NoError(t, err)
	assert.Nil(t, s.Rules.HolidayWeekday)
}

func TestLoadSettings_InvalidRules(t *testing.T) {
	path := writeFixture(t, "")
	t.Setenv("CAMPUSCTL_RULES_OPEN_HOUR", "18")

	_, err := LoadSettings(viper.New(), path)
	assert.ErrorContains(t, err, "must be before close hour")
}

func TestSearch(t *testing.T) {
	path := writeFixture(t, "")

	out, stderr, err := run(t, "--config", path, "search", "faculty", "cse")
	require.NoError(t, err)
	assert.Contains(t, out, "Dr. Anil Sharma")
	assert.NotContains(t, out, "Meera Iyer")
	assert.Contains(t, out, "Found 1 result(s)")
	assert.Contains(t, stderr, "1 faculty row(s) skipped")
}

func TestSearch_JSON(t *testing.T) {
	path := writeFixture(t, "")

	out, _, err := run(t, "-c", path, "search", "services", "--json", "FEE")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Admin-1", rows[0]["Room"])
}

func TestSearch_NoMatch(t *testing.T) {
	path := writeFixture(t, "")

	out, _, err := run(t, "-c", path, "search", "faculty", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 0 result(s)")
}

func TestSearch_Errors(t *testing.T) {
	path := writeFixture(t, "")

	_, _, err := run(t, "-c", path, "search", "canteen")
	assert.ErrorContains(t, err, "unknown directory table")

	_, _, err = run(t, "-c", path, "search", "labs")
	assert.ErrorContains(t, err, "no file configured for labs")
}

func TestStatus(t *testing.T) {
	path := writeFixture(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"in session", []string{"status", "dr. anil sharma"}, "Dr. Anil Sharma: In Session (10:00 - 11:00)"},
		{"no timetable entry", []string{"status", "Meera", "Iyer"}, "Meera Iyer: Available (No schedule found)"},
		{"holiday", []string{"status", "Meera Iyer", "--at", "2026-10-18T10:00:00+05:30"}, "Closed (Holiday)"},
		{"after hours", []string{"status", "Dr. Anil Sharma", "--at", "2026-10-19T18:00:00+05:30"}, "Closed - Hours: 7 AM to 5 PM"},
		{"after class", []string{"status", "Dr. Anil Sharma", "--at", "2026-10-19T11:01:00+05:30"}, "Dr. Anil Sharma: Available\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"-c", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestStatus_JSON(t *testing.T) {
	path := writeFixture(t, "")

	out, _, err := run(t, "-c", path, "status", "--json", "Dr. Anil Sharma")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "in_session", res["status"])
	assert.Equal(t, false, res["available"])
}

func TestStatus_ICSFile(t *testing.T) {
	dir := t.TempDir()
	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:1@test\r\nSUMMARY:Meera Iyer - Optics Lab\r\n" +
		"DTSTART:20261019T043000Z\r\nDTEND:20261019T060000Z\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cal.ics"), []byte(ics), 0o600))
	cfg := "timezone = \"Asia/Kolkata\"\nics_file = \"cal.ics\"\n"
	path := filepath.Join(dir, "campusctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	out, _, err := run(t, "-c", path, "status", "Meera Iyer")
	require.NoError(t, err)
	assert.Contains(t, out, "Meera Iyer: In Session (10:00 - 11:30)")
}

func TestStatus_MissingICSFile(t *testing.T) {
	dir := t.TempDir()
	cfg := "timezone = \"Asia/Kolkata\"\nics_file = \"missing.ics\"\n"
	path := filepath.Join(dir, "campusctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	out, _, err := run(t, "-c", path, "status", "--json", "--at", "2026-10-19T10:30:00+05:30", "Meera Iyer")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "fetch_error", res["status"])
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
