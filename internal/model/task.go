package model

// ImageTask describes one file to be processed by a worker.
//
// Destination is rewritten when conversion to the fixed format changes the
// file extension; every other field stays as created at dispatch time.
type ImageTask struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Scale       float64 `json:"scale"`
	Convert     bool    `json:"convert"` // re-encode to the fixed format
}

// Metadata holds the dimensions read from an image before it is transformed.
type Metadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
