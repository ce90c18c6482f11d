package entities

import "time"

// ConversionOptions is the transform policy shared by every file of a batch.
type ConversionOptions struct {
	Format           string `json:"format"`
	Quality          int    `json:"quality"`
	ResizeWidth      int    `json:"resize_width"`  // 0 means unconstrained
	ResizeHeight     int    `json:"resize_height"` // 0 means unconstrained
	PreserveMetadata bool   `json:"preserve_metadata"`
}

// Upload is one file of a batch as received from the client.
type Upload struct {
	Name string
	Data []byte
}

type ConvertedOutput struct {
	Name        string `json:"name"`
	Data        []byte `json:"-"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type Job struct {
	ID        string            `json:"id"`
	Outputs   []ConvertedOutput `json:"outputs"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// File returns the output stored under name.
func (j Job) File(name string) (ConvertedOutput, bool) {
	for _, o := range j.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return ConvertedOutput{}, false
}
