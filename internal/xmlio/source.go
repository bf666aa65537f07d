package xmlio

import (
	"encoding/xml"
	"io"

	"github.com/hexbind/exi/internal/exi"
	"github.com/hexbind/exi/utils"
)

// XMLSource implements exi.EventSource over an encoding/xml.Decoder,
// unpacking one XML StartElement token into the SE, NS..., AT... sequence the
// grammar engine expects (EXI delivers attributes and namespace
// declarations as their own events, inline XML carries them on the start
// tag), buffering the expansion in a small internal queue.
type XMLSource struct {
	dec   *xml.Decoder
	queue []exi.Event
	sawSD bool
	sawED bool
}

func NewXMLSource(r io.Reader) *XMLSource {
	return &XMLSource{dec: xml.NewDecoder(r)}
}

func (s *XMLSource) Next() (exi.Event, bool, error) {
	if !s.sawSD {
		s.sawSD = true
		return exi.Event{Kind: exi.EventSD}, true, nil
	}
	for len(s.queue) == 0 {
		if s.sawED {
			return exi.Event{}, false, nil
		}
		tok, err := s.dec.Token()
		if err == io.EOF {
			s.sawED = true
			s.queue = append(s.queue, exi.Event{Kind: exi.EventED})
			continue
		}
		if err != nil {
			return exi.Event{}, false, err
		}
		s.queue = expandToken(tok)
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true, nil
}

// expandToken turns one xml.Token into the zero-or-more exi.Events it
// represents: a StartElement becomes SE, NS..., AT... (the grammar offers
// NS only in the element's own start tag); other tokens map one-to-one.
func expandToken(tok xml.Token) []exi.Event {
	switch t := tok.(type) {
	case xml.StartElement:
		events := make([]exi.Event, 0, len(t.Attr)+1)
		events = append(events, exi.Event{Kind: exi.EventSE, QName: exi.QName{URI: t.Name.Space, Local: t.Name.Local}})
		var attrs []xml.Attr
		for _, a := range t.Attr {
			if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
				prefix := a.Name.Local
				if prefix == "xmlns" {
					prefix = ""
				}
				events = append(events, exi.Event{Kind: exi.EventNS, NSUri: a.Value, NSPrefix: prefix, NSIsLocal: true})
				continue
			}
			attrs = append(attrs, a)
		}
		for _, a := range attrs {
			events = append(events, exi.Event{Kind: exi.EventAT, QName: exi.QName{URI: a.Name.Space, Local: a.Name.Local}, Value: exi.StringValue(a.Value)})
		}
		return events
	case xml.EndElement:
		return []exi.Event{{Kind: exi.EventEE, QName: exi.QName{URI: t.Name.Space, Local: t.Name.Local}}}
	case xml.CharData:
		if len(t) == 0 || utils.IsWhiteSpaceOnly(string(t)) {
			return nil
		}
		return []exi.Event{{Kind: exi.EventCH, Value: exi.StringValue(string(t))}}
	case xml.Comment:
		return []exi.Event{{Kind: exi.EventCM, Text: string(t)}}
	case xml.ProcInst:
		return []exi.Event{{Kind: exi.EventPI, PITarget: t.Target, Text: string(t.Inst)}}
	default:
		return nil
	}
}
