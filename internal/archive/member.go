package archive

import "time"

// Member describes a single entry inside an evidence container.
// Names are archive-relative paths and are not unique across containers.
type Member struct {
	Name           string
	Size           uint64
	CompressedSize uint64
	IsDir          bool
	// Modified is nil when the container carries no usable timestamp
	// for the entry. ZIP timestamps have DOS-epoch resolution at best.
	Modified *time.Time
}

// Ext returns the member's lowercased file extension, including the dot.
func (m Member) Ext() string {
	return lowerExt(m.Name)
}
