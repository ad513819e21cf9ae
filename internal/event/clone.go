package event

import "github.com/wan0ge/sleepy/pkg/types"

// Clone implementations for every variant. Shallow struct copies plus a
// fresh Meta; map-valued fields get their own map so handler edits to them
// are isolated too.

func (e *AppStartedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *AppStoppedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *APIUnsuccessfulEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *MetadataAccessEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *MetricsAccessEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *QueryAccessEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *StatusListAccessEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *StreamConnectedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *StreamDisconnectedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *StatusUpdatedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func (e *DeviceSetEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	c.Fields = copyFields(e.Fields)
	return &c
}

func (e *DeviceRemovedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	c.Device = e.Device.Clone()
	return &c
}

func (e *DeviceClearedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	if e.Devices != nil {
		c.Devices = make(map[string]types.Device, len(e.Devices))
		for k, v := range e.Devices {
			c.Devices[k] = v.Clone()
		}
	}
	return &c
}

func (e *PrivateModeChangedEvent) Clone() Event {
	c := *e
	c.meta = e.meta.copy()
	return &c
}

func copyFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
