package headless

import (
	"fmt"
	"strconv"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
)

// Every script returns a JSON string so results cross the DevTools boundary
// without depending on remote-object serialization.

// fieldsVar holds the enumerated elements in the page so later calls can
// address them by index.
const fieldsVar = "window.__fieldprobeFields"

const enumerateScript = `(() => {
  const els = Array.from(document.querySelectorAll('input, textarea'))
    .filter(el => el.tagName === 'TEXTAREA' || el.type !== 'hidden');
  ` + fieldsVar + ` = els;
  const rich = el => el.hasAttribute('data-richtext') || el.hasAttribute('data-rich-text') ||
    ['richtext', 'rich-text', 'wysiwyg'].some(c => el.classList.contains(c)) ||
    ((el.getAttribute('role') || '').trim().toLowerCase() === 'textbox' &&
      (el.getAttribute('aria-multiline') || '').trim().toLowerCase() === 'true');
  return JSON.stringify(els.map((el, i) => ({
    index: i,
    tag: el.tagName.toLowerCase(),
    name: el.getAttribute('name') || '',
    id: el.id || '',
    type: el.tagName === 'TEXTAREA' ? '' : (el.getAttribute('type') || '').toLowerCase(),
    maxLength: el.hasAttribute('maxlength') ? el.maxLength : -1,
    pattern: el.getAttribute('pattern') || '',
    required: !!el.required,
    contentEditable: !!el.isContentEditable,
    richText: rich(el),
    inForm: !!el.form,
  })));
})()`

// onField wraps body so it runs with el bound to the enumerated field at
// index. A detached or unknown field reports {"gone":true}.
func onField(index int, body string) string {
	return `(() => {
  const el = (` + fieldsVar + ` || [])[` + strconv.Itoa(index) + `];
  if (!el || !el.isConnected) return JSON.stringify({gone: true});
  const setValue = v => {
    const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, v);
  };
` + body + `
})()`
}

func readScript(index int) string {
	return onField(index, `  return JSON.stringify({
    gone: false,
    value: el.value,
    valid: el.validity ? el.validity.valid : true,
    validationMessage: el.validationMessage || '',
    className: el.getAttribute('class') || '',
    ariaInvalid: el.getAttribute('aria-invalid') || '',
  });`)
}

// setScript uses the prototype's value setter so framework-wrapped inputs
// (React and friends track the instance property) notice the change.
func setScript(index int, value string) string {
	return onField(index, `  setValue(`+jsonutil.Quote(value)+`);
  return JSON.stringify({gone: false});`)
}

// dispatchScript fires input, change and blur, all bubbling. With submit set
// it also fires a cancelable submit on the owning form, prevents its default
// action and runs the form's constraint validation so invalid listeners fire.
func dispatchScript(index int, submit bool) string {
	return onField(index, fmt.Sprintf(`  for (const type of ['input', 'change', 'blur']) {
    el.dispatchEvent(new Event(type, {bubbles: true}));
  }
  if (%t && el.form) {
    const form = el.form;
    const block = e => e.preventDefault();
    form.addEventListener('submit', block);
    try {
      form.dispatchEvent(new Event('submit', {bubbles: true, cancelable: true}));
    } finally {
      form.removeEventListener('submit', block);
    }
    form.checkValidity();
  }
  return JSON.stringify({gone: false});`, submit))
}

// restoreScript puts back the value and the error markers. Custom validity
// belongs to the page and is left as it is.
func restoreScript(index int, snapshot inputvalidation.FieldState) string {
	return onField(index, fmt.Sprintf(`  setValue(%s);
  const cls = %s, aria = %s;
  if (cls) el.setAttribute('class', cls); else el.removeAttribute('class');
  if (aria) el.setAttribute('aria-invalid', aria); else el.removeAttribute('aria-invalid');
  return JSON.stringify({gone: false});`,
		jsonutil.Quote(snapshot.Value), jsonutil.Quote(snapshot.ClassName), jsonutil.Quote(snapshot.AriaInvalid)))
}

// fieldReply is what every per-field script returns.
type fieldReply struct {
	Gone              bool   `json:"gone"`
	Value             string `json:"value"`
	Valid             bool   `json:"valid"`
	ValidationMessage string `json:"validationMessage"`
	ClassName         string `json:"className"`
	AriaInvalid       string `json:"ariaInvalid"`
}

func parseFields(raw string) ([]inputvalidation.FieldElement, error) {
	var fields []inputvalidation.FieldElement
	if err := jsonutil.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

func parseReply(index int, raw string) (fieldReply, error) {
	var r fieldReply
	if err := jsonutil.Unmarshal([]byte(raw), &r); err != nil {
		return r, fmt.Errorf("decode field %d: %w", index, err)
	}
	if r.Gone {
		return r, fmt.Errorf("field %d: %w", index, inputvalidation.ErrFieldGone)
	}
	return r, nil
}
