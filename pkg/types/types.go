package types

// StatusItem is one entry of the configured manual status catalog.
type StatusItem struct {
	ID    int    `json:"id" yaml:"id" toml:"id"`
	Name  string `json:"name" yaml:"name" toml:"name"`
	Desc  string `json:"desc" yaml:"desc" toml:"desc"`
	Color string `json:"color" yaml:"color" toml:"color"`
}

// UnknownStatus is the sentinel returned when the stored manual status id is
// not present in the catalog. Reads never fail on an unconfigured id.
func UnknownStatus(id int) StatusItem {
	return StatusItem{
		ID:    -1,
		Name:  "[unknown]",
		Desc:  "unknown status id, likely a configuration problem",
		Color: "error",
	}
}

// Device is the state last reported for a single device.
type Device struct {
	ShowName string `json:"show_name"`
	Using    bool   `json:"using"`
	Status   string `json:"status"`
	// Fields carries arbitrary extra values clients attach to a device.
	Fields      map[string]any `json:"fields,omitempty"`
	LastUpdated int64          `json:"last_updated"`
}

// Clone copies the record so callers cannot mutate store-owned state.
// Field values are shared, the map itself is not.
func (d Device) Clone() Device {
	out := d
	if d.Fields != nil {
		out.Fields = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
