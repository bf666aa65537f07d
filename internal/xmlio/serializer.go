// Package xmlio adapts the exi processor's Serializer/EventSource
// interfaces to real XML: XMLSerializer turns decoded EXI events into
// encoding/xml tokens, and XMLSource turns an XML document into the
// event stream the encoder drives. Grounded on the teacher's
// sax.SAXDecoder/SAXEncoder (sax/decoder.go, sax/encoder.go), which use
// the same encoding/xml-token-stream style against a core.EXIBodyDecoder.
package xmlio

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/hexbind/exi/internal/exi"
)

// XMLSerializer implements exi.Serializer by writing encoding/xml tokens.
// Start tags are deferred until the next sibling-affecting event (AT no
// longer applies once an EE/SE/CH arrives) so that attributes, which EXI
// delivers after SE but XML requires inline on StartElement, can be
// collected first — the same deferred-start-element technique as the
// teacher's SAXDecoder.parseEXIEvents.
type XMLSerializer struct {
	enc *xml.Encoder

	pending     *xml.Name
	pendingAttr []xml.Attr
	pendingNS   []xml.Attr
	haveRoot    bool
}

func NewXMLSerializer(w io.Writer) *XMLSerializer {
	return &XMLSerializer{enc: xml.NewEncoder(w)}
}

func (s *XMLSerializer) NeedsPersistence() bool { return false }

func (s *XMLSerializer) flushPending() error {
	if s.pending == nil {
		return nil
	}
	attrs := append(append([]xml.Attr{}, s.pendingNS...), s.pendingAttr...)
	err := s.enc.EncodeToken(xml.StartElement{Name: *s.pending, Attr: attrs})
	s.pending = nil
	s.pendingAttr = nil
	s.pendingNS = nil
	return err
}

func (s *XMLSerializer) SD() (exi.Status, error) {
	return exi.StatusContinue, nil
}

func (s *XMLSerializer) ED() (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	return exi.StatusContinue, s.enc.Flush()
}

func (s *XMLSerializer) SE(qn exi.QName) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	name := xml.Name{Space: qn.URI, Local: qn.Local}
	s.pending = &name
	s.haveRoot = true
	return exi.StatusContinue, nil
}

func (s *XMLSerializer) EE(qn exi.QName) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: qn.URI, Local: qn.Local}})
	return exi.StatusContinue, err
}

func (s *XMLSerializer) AT(qn exi.QName, value exi.TypedValue) (exi.Status, error) {
	if s.pending == nil {
		return exi.StatusContinue, fmt.Errorf("xmlio: AT outside a start tag")
	}
	s.pendingAttr = append(s.pendingAttr, xml.Attr{Name: xml.Name{Space: qn.URI, Local: qn.Local}, Value: value.Lex})
	return exi.StatusContinue, nil
}

func (s *XMLSerializer) NS(uri, prefix string, isLocalElement bool) (exi.Status, error) {
	local := "xmlns"
	if prefix != "" {
		local = "xmlns:" + prefix
	}
	s.pendingNS = append(s.pendingNS, xml.Attr{Name: xml.Name{Local: local}, Value: uri})
	return exi.StatusContinue, nil
}

func (s *XMLSerializer) CH(value exi.TypedValue) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.CharData(value.Lex))
	return exi.StatusContinue, err
}

func (s *XMLSerializer) CM(text string) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.Comment(text))
	return exi.StatusContinue, err
}

func (s *XMLSerializer) PI(target, text string) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.ProcInst{Target: target, Inst: []byte(text)})
	return exi.StatusContinue, err
}

func (s *XMLSerializer) DT(name, publicID, systemID, text string) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.Directive(fmt.Sprintf("DOCTYPE %s", name)))
	return exi.StatusContinue, err
}

func (s *XMLSerializer) ER(name string) (exi.Status, error) {
	if err := s.flushPending(); err != nil {
		return exi.StatusContinue, err
	}
	err := s.enc.EncodeToken(xml.CharData("&" + name + ";"))
	return exi.StatusContinue, err
}

func (s *XMLSerializer) SC() (exi.Status, error) {
	return exi.StatusContinue, nil
}
