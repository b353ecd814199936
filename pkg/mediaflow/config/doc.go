/*
Package config loads mediaflow engine settings from YAML or JSON.

A Config wraps the decoded document and exposes typed accessors that fall
back to a default when a key is missing or holds the wrong type:

	cfg, err := config.FromFile("mediaflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	cooldown := cfg.Duration("video_cooldown", 2*time.Second)

Settings collects everything the engine reads in one struct:

	settings, err := config.SettingsFromFile("mediaflow.yaml")

Recognised keys:

	history_capacity    int       undo depth (default 50)
	video_cooldown      duration  pause after each generated video (default 2s)
	stitch_iterations   int       default stitch regeneration rounds (default 1)
	paste_offset        number    paste displacement on both axes (default 50)
	default_edge_style  string    bezier, smoothstep, step or straight (default bezier)
	sqlite_path         string    workflow database; empty keeps workflows in memory
	output_folder       string    default folder for stitch iteration outputs

Durations accept Go duration strings ("1500ms") or a number of seconds.
*/
package config
