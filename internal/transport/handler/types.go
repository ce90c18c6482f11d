package handler

import "time"

// FileInfo describes one converted file in the convert response.
type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
}

type ConvertResponse struct {
	JobID     string     `json:"jobId"`
	Files     []FileInfo `json:"files"`
	ZipURL    string     `json:"zipUrl"`
	ExpiresAt time.Time  `json:"expiresAt"`
}
