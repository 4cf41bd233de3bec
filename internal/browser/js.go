package browser

import (
	"encoding/json"
	"fmt"
)

// TargetAttr is set on the element chosen by Mark so later actions can
// address it with a plain CSS selector.
const TargetAttr = "data-sb-target"

// findScript walks selectors in order and returns the first one that matches
// a visible (and optionally enabled) element. Selectors prefixed with "text="
// match on the element's own trimmed text, case-insensitively. When token is
// non-empty the matched element is tagged with TargetAttr=token.
const findScript = `(function(selectors, enabledOnly, token) {
	const visible = el => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	};
	const disabled = el => el.disabled === true || el.getAttribute('aria-disabled') === 'true';
	const byText = text => {
		const want = text.replace(/^"|"$/g, '').trim().toLowerCase();
		return Array.from(document.querySelectorAll('button, [role="button"], span, a, label, h1, h2, div'))
			.filter(el => {
				const t = (el.innerText || '').trim().toLowerCase();
				if (t === want) return true;
				return el.children.length === 0 && t.includes(want);
			});
	};
	for (const sel of selectors) {
		let els = [];
		try {
			els = sel.startsWith('text=') ? byText(sel.slice(5)) : Array.from(document.querySelectorAll(sel));
		} catch (e) {
			continue;
		}
		for (const el of els) {
			if (!visible(el)) continue;
			if (enabledOnly && disabled(el)) continue;
			if (token) {
				document.querySelectorAll('[%[1]s]').forEach(o => o.removeAttribute('%[1]s'));
				el.setAttribute('%[1]s', token);
			}
			return sel;
		}
	}
	return '';
})(%[2]s, %[3]t, %[4]s)`

// clearScript empties an input, textarea or contenteditable element.
const clearScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') {
		el.value = '';
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	}
	document.execCommand('selectAll', false, null);
	document.execCommand('delete', false, null);
	return true;
})(%s)`

func buildFindScript(selectors []string, enabledOnly bool, token string) string {
	sels, _ := json.Marshal(selectors)
	tok, _ := json.Marshal(token)
	return fmt.Sprintf(findScript, TargetAttr, string(sels), enabledOnly, string(tok))
}

func buildClearScript(selector string) string {
	sel, _ := json.Marshal(selector)
	return fmt.Sprintf(clearScript, string(sel))
}

func buildAssignScript(url string) string {
	u, _ := json.Marshal(url)
	return fmt.Sprintf(`setTimeout(() => window.location.assign(%s), 0)`, string(u))
}

// TargetSelector is the CSS selector addressing an element tagged by Mark
func TargetSelector(token string) string {
	return fmt.Sprintf(`[%s="%s"]`, TargetAttr, token)
}
