package notion

import (
	"fmt"
	"strings"

	"calendar-sync/core/utils"

	"go.uber.org/multierr"
)

// Database is a Notion database synced into a Google calendar.
type Database struct {
	// Workspace selects the integration token.
	Workspace string `mapstructure:"workspace" json:"workspace"`
	// Name is unique among configured databases.
	Name string `mapstructure:"name" json:"name"`
	// ID is the Notion database id.
	ID string `mapstructure:"id" json:"id"`
	// CalendarID is the destination Google calendar.
	CalendarID string `mapstructure:"calendar_id" json:"calendar_id"`
	// TitleProperty names the title property.
	TitleProperty string `mapstructure:"title_property" json:"title_property"`
	// DateProperty names the date property.
	DateProperty string `mapstructure:"date_property" json:"date_property"`
	// TagPropertyPath is the slash separated path to the tag value inside the
	// page properties, e.g. "State/status/name". The first segment is the
	// property name.
	TagPropertyPath string `mapstructure:"tag_property_path" json:"tag_property_path"`
	// TagMapping maps tag values to the icon prefixed to the event title.
	TagMapping map[string]string `mapstructure:"tag_mapping" json:"tag_mapping"`
	// TagDefault is the icon used for unmapped tag values.
	TagDefault string `mapstructure:"tag_default" json:"tag_default"`
}

// Validate reports missing required fields.
func (d Database) Validate() error {
	var err error
	for _, f := range []struct{ name, value string }{
		{"workspace", d.Workspace},
		{"name", d.Name},
		{"id", d.ID},
		{"calendar_id", d.CalendarID},
		{"title_property", d.TitleProperty},
		{"date_property", d.DateProperty},
	} {
		if f.value == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required", f.name))
		}
	}
	if err != nil {
		return fmt.Errorf("database %q: %w", d.Name, err)
	}
	return nil
}

// TagProperty returns the name of the property holding the tag, or "".
func (d Database) TagProperty() string {
	path := utils.SplitPath(d.TagPropertyPath)
	if len(path) == 0 {
		return ""
	}
	return path[0]
}

// DisplayTitle decorates a plain title with the icon mapped from tag.
// Config loaders may lowercase mapping keys, so an exact match is preferred
// over a case-insensitive one.
func (d Database) DisplayTitle(title, tag string) string {
	icon, ok := d.TagMapping[tag]
	if !ok {
		icon, ok = d.lookupFold(tag)
	}
	if !ok {
		icon = d.TagDefault
	}
	if icon == "" {
		return title
	}
	return icon + " " + title
}

func (d Database) lookupFold(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	for k, v := range d.TagMapping {
		if strings.EqualFold(k, tag) {
			return v, true
		}
	}
	return "", false
}
