package capture

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func TestSVGPage(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="20"></svg>`)
	page := SVGPage(svg, 10, 20)

	for _, want := range []string{
		`data-ready="false"`,
		`width:10px;height:20px`,
		`src="data:image/svg+xml;base64,` + base64.StdEncoding.EncodeToString(svg) + `"`,
		`onload="document.body.setAttribute('data-ready','true')"`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}
}

func TestImagePage(t *testing.T) {
	page := ImagePage("image/jpeg", []byte{0xff, 0xd8}, Placement{PageW: 744, PageH: 1052.5, X: 10, Y: 12.25, W: 724, H: 1028})
	for _, want := range []string{
		`@page{size:744pt 1052.5pt;margin:0}`,
		`left:10pt;top:12.25pt;width:724pt;height:1028pt`,
		`src="data:image/jpeg;base64,/9g="`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}
}

func TestRejectsBadInputWithoutBrowser(t *testing.T) {
	c := &Chromium{}
	if _, err := c.RasterizeSVG(context.Background(), nil, 10, 10); err == nil {
		t.Fatal("expected error for empty svg")
	}
	if _, err := c.RasterizeSVG(context.Background(), []byte("<svg/>"), 0, 10); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := c.PrintPDF(context.Background(), "<html></html>", 0, 10); err == nil {
		t.Fatal("expected error for zero page width")
	}
}
