package devsrv

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const reloadScript = `(function(){` +
	`var ws=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+"` + ReloadPath + `");` +
	`ws.onmessage=function(e){` +
	`if(e.data==="css"){document.querySelectorAll('link[rel="stylesheet"]').forEach(function(l){` +
	`var u=new URL(l.href);u.searchParams.set("webmk",Date.now());l.href=u.toString();});}` +
	`else{location.reload();}};})();`

// InjectReload adds the live reload script at the end of the page's body.
func InjectReload(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		// html.Parse always adds a body
		return page, nil
	}
	script := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr:     []html.Attribute{{Key: "data-webmk", Val: "livereload"}},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: reloadScript})
	body.AppendChild(script)
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, a); f != nil {
			return f
		}
	}
	return nil
}

func isHTML(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".htm")
}
