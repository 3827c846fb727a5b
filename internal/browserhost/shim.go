package browserhost

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// shimScript defines acquireHostApi inside the content frame. Messages go
// to the enclosing frame page, which relays them over the websocket.
const shimScript = `(function () {
  var api = {
    postMessage: function (payload) {
      window.parent.postMessage({ __webpanel: true, payload: payload }, '*');
    }
  };
  window.acquireHostApi = function () { return api; };
})();`

// injectShim adds the host API script to the top of <head>. It reuses the
// nonce of the page's first nonced script so the page's CSP admits it.
func injectShim(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse webview html: %w", err)
	}

	script := "<script"
	if nonce, ok := doc.Find("script[nonce]").First().Attr("nonce"); ok {
		script += fmt.Sprintf(` nonce="%s"`, escapeAttr(nonce))
	}
	script += ">" + shimScript + "</script>"

	doc.Find("head").PrependHtml(script)
	return doc.Html()
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;").Replace(s)
}
