// File: internal/browser/session/scripts.go
package session

import (
	json "github.com/json-iterator/go"
)

// describeJS finds elements by CSS or XPath, stamps each with a stable index
// attribute and returns a plain descriptor per element.
const describeJS = `function (expr, isXPath, attr) {
  var nodes = [];
  if (isXPath) {
    var res = document.evaluate(expr, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    for (var i = 0; i < res.snapshotLength; i++) nodes.push(res.snapshotItem(i));
  } else {
    nodes = Array.prototype.slice.call(document.querySelectorAll(expr));
  }
  var next = window.__casepilotNextIdx || 0;
  var out = [];
  nodes.forEach(function (el) {
    if (!el || el.nodeType !== 1) return;
    var idx = el.getAttribute(attr);
    if (idx === null) {
      idx = String(next++);
      el.setAttribute(attr, idx);
    }
    var label = "";
    if (el.id) {
      var l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
      if (l) label = l.textContent || "";
    }
    var rect = el.getBoundingClientRect();
    var style = window.getComputedStyle(el);
    out.push({
      index: parseInt(idx, 10),
      tag: el.tagName.toLowerCase(),
      type: String(el.type || el.getAttribute("type") || "").toLowerCase(),
      id: el.id || "",
      name: el.getAttribute("name") || "",
      placeholder: el.getAttribute("placeholder") || "",
      label: label.replace(/\s+/g, " ").trim(),
      text: String(el.innerText || el.value || "").replace(/\s+/g, " ").trim().slice(0, 200),
      checked: !!el.checked,
      visible: rect.width > 0 && rect.height > 0 && style.visibility !== "hidden" && style.display !== "none"
    });
  });
  window.__casepilotNextIdx = next;
  return out;
}`

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
