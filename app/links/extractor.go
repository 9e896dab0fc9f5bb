package links

import (
	"regexp"
	"strings"

	"github.com/lysyi3m/chat-harvest/app/archive"
)

// CDNPrefix is the single literal host pattern whose links are harvested.
// Generalized CDN support is out of scope on purpose.
const CDNPrefix = "https://img.alicdn.com"

// linkPattern captures the longest contiguous token starting at the CDN
// prefix and ending before whitespace or a quote character.
var linkPattern = regexp.MustCompile(regexp.QuoteMeta(CDNPrefix) + `[^\s"']*`)

// Extract scans every message of the dataset for CDN image links. Output
// order follows dataset iteration order: date-ascending, then record order,
// then message order, then match order within a message. A single message may
// yield zero, one, or multiple descriptors.
func Extract(ds *archive.Dataset) []Descriptor {
	var descriptors []Descriptor

	for _, rec := range ds.AllRecords {
		for _, msg := range rec.Chats {
			if !strings.Contains(msg.Content, CDNPrefix) {
				continue
			}
			for _, url := range linkPattern.FindAllString(msg.Content, -1) {
				descriptors = append(descriptors, Descriptor{
					URL:  url,
					Date: rec.Date,
					Time: msg.Time,
					Name: msg.Name,
				})
			}
		}
	}

	return descriptors
}
