package model

import "time"

// MovementAttachment is a document reference rendered in a movement row.
// It names a document; the binary content is fetched separately and lands
// in an Attachment.
type MovementAttachment struct {
	Date time.Time `json:"date"`
	Ref  string    `json:"ref"`
}

// Movement is one procedural event of a case. Movements keep the
// portal-native order (typically reverse chronological); they are never
// re-sorted.
type Movement struct {
	CreatedAt   time.Time            `json:"created_at"`
	Description string               `json:"description"`
	Attachments []MovementAttachment `json:"attachments,omitempty"`
}

// Attachment is a fully resolved case document. Content is nil when the
// download soft-failed (access denied, login redirect); the textual case
// data is persisted regardless.
type Attachment struct {
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`

	Content []byte `json:"content,omitempty"`
	MD5     string `json:"md5,omitempty"`

	// Some portals pair every document with a filing protocol; it is
	// downloaded in the same excursion and may fail independently.
	ProtocolContent []byte `json:"protocol_content,omitempty"`
	ProtocolMD5     string `json:"protocol_md5,omitempty"`
}
