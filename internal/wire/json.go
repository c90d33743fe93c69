package wire

// JSON field shapes for the Caps/BufferMeta/CustomMeta parts. Field
// names and optionality are bit-exact with the wire format table.

type capsJSON struct {
	CapsStr string `json:"caps_str"`
	Width int `json:"width"`
	Height int `json:"height"`
	Format *string `json:"format,omitempty"`
	FpsN *int `json:"fps_n,omitempty"`
	FpsD *int `json:"fps_d,omitempty"`
	Framerate *string `json:"framerate,omitempty"`
}

type bufferMetaJSON struct {
	PTS uint64 `json:"pts"`
	Width int `json:"width"`
	Height int `json:"height"`
	Flags int `json:"flags"`
	DTS *uint64 `json:"dts,omitempty"`
	Duration *uint64 `json:"duration,omitempty"`
	CapsStr *string `json:"caps_str,omitempty"`
}
