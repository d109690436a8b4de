package cmd

import "testing"

func TestVersionCommandNeedsNoConfig(t *testing.T) {
	// An empty working directory: no jobfinder.yaml anywhere in sight.
	t.Chdir(t.TempDir())

	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version must run without a config file: %v", err)
	}
}
