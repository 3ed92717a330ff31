package report

import (
	"encoding/xml"
	"fmt"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

type xmlValue struct {
	XMLName xml.Name `xml:"value"`
	Text    string   `xml:",chardata"`
}

type xmlFailure struct {
	XMLName xml.Name `xml:"failure"`
	Msg     string   `xml:"msg,attr"`
	Type    string   `xml:"type,attr"`
	Values  []xmlValue
}

type xmlSection struct {
	XMLName   xml.Name
	ClassName string      `xml:"classname,attr"`
	Name      string      `xml:"name,attr"`
	Failure   *xmlFailure // omitted for categories without violations
}

type xmlRoot struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Sections []xmlSection
}

// MarshalXML renders a problems report: one element per category, with a failure
// child listing offending paths only when the category is non-empty.
func MarshalXML(report *entities.ProblemsReport) ([]byte, error) {
	layout := report.Layout
	root := xmlRoot{XMLName: xml.Name{Local: layout.Root}}
	for _, a := range layout.Attrs {
		root.Attrs = append(root.Attrs, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}

	for _, c := range report.Categories {
		section := xmlSection{
			XMLName:   xml.Name{Local: layout.Element},
			ClassName: layout.ClassName,
			Name:      c.XMLName,
		}
		if len(c.Paths) > 0 {
			failure := &xmlFailure{Msg: c.FailureMsg, Type: "violation"}
			for _, p := range c.Paths {
				failure.Values = append(failure.Values, xmlValue{Text: p})
			}
			section.Failure = failure
		}
		root.Sections = append(root.Sections, section)
	}

	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML report: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
