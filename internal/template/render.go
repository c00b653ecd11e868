// internal/template/render.go
package template

import (
    "encoding/json"
    "regexp"
    "strconv"

    "github.com/Etherlyvan/Email-Blaster-2Worker-sub000/internal/model"
)

// Both placeholder syntaxes are accepted: {{first_name}} and {first_name}.
// The double-brace alternative must come first so {{x}} is not half-matched.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}|\{\s*([A-Za-z0-9_.-]+)\s*\}`)

// Render substitutes a contact's variables into text. The contact's email is
// always available as the "email" variable; everything else comes from the
// contact's additional data. Unknown placeholders are replaced with the empty
// string so malformed templates never leak raw markup to recipients.
func Render(text string, contact model.Contact) string {
    vars := make(map[string]string, len(contact.AdditionalData)+1)
    for k, v := range contact.AdditionalData {
        vars[k] = stringify(v)
    }
    vars["email"] = contact.Email

    return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
        groups := placeholderRe.FindStringSubmatch(match)
        key := groups[1]
        if key == "" {
            key = groups[2]
        }
        return vars[key]
    })
}

func stringify(v interface{}) string {
    switch val := v.(type) {
    case nil:
        return ""
    case string:
        return val
    case float64:
        return strconv.FormatFloat(val, 'f', -1, 64)
    case bool:
        return strconv.FormatBool(val)
    default:
        b, err := json.Marshal(val)
        if err != nil {
            return ""
        }
        return string(b)
    }
}
