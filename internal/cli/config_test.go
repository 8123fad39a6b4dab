package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitriwamback/cs-dge-library-system/internal/cli"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func Test_Print_Config_Defaults_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "data_dir="+c.DataDir())
	cli.AssertContains(t, stdout, "workers=8")
	cli.AssertContains(t, stdout, "lock_timeout=5s")
	cli.AssertContains(t, stdout, "log_level=WARN")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_Does_Not_Create_Data_Dir(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("print-config")

	if _, err := os.Stat(c.DataDir()); !os.IsNotExist(err) {
		t.Fatalf("data dir should not exist, stat err=%v", err)
	}
}

func Test_Print_Config_From_Config_File_With_Comments_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, ".library.json"), `{
		// shared with the lab machines
		"data_dir": "rentals",
		"workers": 3,
		"time_zone": "UTC",
	}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "data_dir="+filepath.Join(c.Dir, "rentals"))
	cli.AssertContains(t, stdout, "workers=3")
	cli.AssertContains(t, stdout, "time_zone=UTC")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".library.json"))
}

func Test_Print_Config_Global_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	xdg := t.TempDir()
	c.Env["XDG_CONFIG_HOME"] = xdg
	writeFile(t, filepath.Join(xdg, "library", "config.json"), `{"log_level": "info"}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "log_level=INFO")
	cli.AssertContains(t, stdout, "global_config="+filepath.Join(xdg, "library", "config.json"))
}

func Test_Data_Dir_Flag_Overrides_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, ".library.json"), `{"data_dir": "from-file"}`)

	stdout := c.MustRun("--data-dir", "from-flag", "print-config")

	cli.AssertContains(t, stdout, "data_dir="+filepath.Join(c.Dir, "from-flag"))
}

func Test_Verbose_Flag_Sets_Debug_Level(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("-v", "print-config")

	cli.AssertContains(t, stdout, "log_level=DEBUG")
}

func Test_Invalid_Config_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, ".library.json"), `{"workers": 0}`)

	stderr := c.MustFail("print-config")

	cli.AssertContains(t, stderr, "invalid config")
}

func Test_Missing_Explicit_Config_Fails_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c", "nope.json", "print-config")

	cli.AssertContains(t, stderr, "nope.json")
}
