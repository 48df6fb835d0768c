package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// stealthScript hides the usual automation fingerprints. It is installed on
// every new document of every tab.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = {runtime: {}};
`

// isXPath reports whether locator is an XPath expression rather than a CSS
// selector.
func isXPath(locator string) bool {
	return strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, "(")
}

func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// locateOne is a JS expression evaluating to the first match or null.
func locateOne(locator string) string {
	if isXPath(locator) {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", jsString(locator))
	}
	return fmt.Sprintf("document.querySelector(%s)", jsString(locator))
}

// locateAll is a JS expression evaluating to an array of matches.
func locateAll(locator string) string {
	if isXPath(locator) {
		return fmt.Sprintf(`(function(){
  const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
  const out = [];
  for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
  return out;
})()`, jsString(locator))
	}
	return fmt.Sprintf("Array.from(document.querySelectorAll(%s))", jsString(locator))
}

func clickScript(locator string) string {
	return fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  el.scrollIntoView({behavior: 'instant', block: 'center', inline: 'nearest'});
  el.click();
  return true;
})()`, locateOne(locator))
}

func visibleScript(locator string) string {
	return fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  const style = window.getComputedStyle(el);
  if (style.visibility === 'hidden' || style.display === 'none') return false;
  return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`, locateOne(locator))
}

func linksScript(locator string) string {
	return fmt.Sprintf(`%s.map(function(a){ return {href: a.href || '', text: (a.innerText || '').trim()}; })`, locateAll(locator))
}

func clearValueScript(locator string) string {
	return fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  el.scrollIntoView({block: 'center'});
  el.focus();
  el.value = '';
  return true;
})()`, locateOne(locator))
}
