package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// CallbackForm is a parsed Twilio webhook body. Twilio sends
// application/x-www-form-urlencoded; the well-known fields are lifted out and
// every posted field is kept verbatim in Fields, both for signature
// verification (which covers all fields) and for raw metadata storage.
type CallbackForm struct {
	CallSid      string
	From         string
	To           string
	CallStatus   string
	CallDuration string

	Fields map[string]string
}

// ParseCallbackForm reads the body of a provider callback. Unknown fields are
// accepted and carried through opaquely.
func ParseCallbackForm(r *http.Request) (CallbackForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallbackForm{}, err
	}

	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		v := ""
		if len(vs) > 0 {
			v = vs[0]
		}
		fields[k] = v
	}

	return CallbackForm{
		CallSid:      fields["CallSid"],
		From:         strings.TrimSpace(fields["From"]),
		To:           strings.TrimSpace(fields["To"]),
		CallStatus:   fields["CallStatus"],
		CallDuration: fields["CallDuration"],
		Fields:       fields,
	}, nil
}

// DurationSeconds parses the reported duration. Twilio sends it as a string;
// absent or unparseable values default to 0.
func (f CallbackForm) DurationSeconds() int {
	v := strings.TrimSpace(f.CallDuration)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
