package exi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaultOptionsOK(t *testing.T) {
	assert.NoError(t, DefaultHeaderOptions().Validate())
}

func TestValidateCompressionRequiresPreCompression(t *testing.T) {
	o := HeaderOptions{Compression: true, Alignment: AlignmentBitPacked}
	err := o.Validate()
	assert.ErrorIs(t, err, ErrKind(KindAlignmentCompressionMismatch))

	o.Alignment = AlignmentPreCompression
	assert.NoError(t, o.Validate())
}

func TestValidateStrictForbidsNonLexicalPreserve(t *testing.T) {
	o := HeaderOptions{Strict: true, Preserve: Preserve{Comments: true}}
	assert.ErrorIs(t, o.Validate(), ErrKind(KindStrictViolation))

	o = HeaderOptions{Strict: true, Preserve: Preserve{LexicalValues: true}}
	assert.NoError(t, o.Validate())
}

func TestValidateStrictForbidsSelfContained(t *testing.T) {
	o := HeaderOptions{Strict: true, SelfContained: true}
	assert.ErrorIs(t, o.Validate(), ErrKind(KindStrictViolation))
}

func TestValidateDatatypeMapRequiresSchemaID(t *testing.T) {
	o := HeaderOptions{DatatypeMap: true}
	assert.ErrorIs(t, o.Validate(), ErrKind(KindDatatypeMapRequiresSchema))

	o.SchemaID = "urn:x"
	assert.NoError(t, o.Validate())

	o.Preserve.LexicalValues = true
	assert.ErrorIs(t, o.Validate(), ErrKind(KindDatatypeMapRequiresSchema))
}

func TestValidateSelfContainedForbidsPreCompression(t *testing.T) {
	o := HeaderOptions{SelfContained: true, Alignment: AlignmentPreCompression}
	assert.ErrorIs(t, o.Validate(), ErrKind(KindSelfContainedWithPreCompression))
}

func TestAlignmentString(t *testing.T) {
	assert.Equal(t, "bit-packed", AlignmentBitPacked.String())
	assert.Equal(t, "byte-aligned", AlignmentByteAligned.String())
	assert.Equal(t, "pre-compression", AlignmentPreCompression.String())
	assert.Equal(t, "compression", AlignmentCompression.String())
}
