// Package config provides configuration management for calendar-sync.
//
// It utilizes Viper for loading configuration from a config.yaml file,
// environment variables and an optional .env file. Environment variables
// win over the file (SYNC_DRY_RUN overrides sync.dry_run).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: run journal connection (MySQL or SQLite)
//   - Storage: S3/MinIO report archive
//   - Log: Logging level and format
//   - Google, Notion, ICal: remote API settings
//   - Sync: reconciliation window, schedule and push URL
//
// The sync targets (databases and feeds) are lists and can only be set in
// config.yaml:
//
//	databases:
//	  - workspace: personal
//	    name: tasks
//	    id: 0123abcd...
//	    calendar_id: abc@group.calendar.google.com
//	    title_property: Name
//	    date_property: Date
//	    tag_property_path: Status/status/name
//	    tag_mapping:
//	      Done: "✅"
//	feeds:
//	  - name: school
//	    url: https://example.com/school.ics
//	    calendar_id: def@group.calendar.google.com
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
