package service

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Backend service codes that trigger pre-hooks.
const (
	presentmentProcessingCode = "450000"
	statementServiceCode      = "USOA"
)

// ApplyPrehooks attaches sub-objects the backend expects under reserved fields.
// params is the transaction data merged with the resolved request.
func ApplyPrehooks(request, params map[string]any) map[string]any {
	if code, _ := request["field3"].(string); code == presentmentProcessingCode {
		request["field127"] = params["presentmentData"]
	}
	if code, _ := request["field100"].(string); code == statementServiceCode {
		request["field127"] = params["lookupDetails"]
	}
	return request
}

// lookupTransactions share the account lookup response mapping.
var lookupTransactions = map[string]bool{
	"account-lookup-validation": true,
	"internal-account-lookup":   true,
	"core-account-lookup":       true,
	"wallet-account-lookup":     true,
	"account-lookup":            true,
}

type fieldMapping struct {
	name string
	path string
}

var lookupMapping = []fieldMapping{
	{"transSuccess", "field39"},
	{"transDescription", "field48"},
	{"accountNumber", "field102"},
}

// lookupDetailMapping reads from the field127 object; every name is present,
// empty when field127 is missing.
var lookupDetailMapping = []fieldMapping{
	{"idNumber", "ID_Number"},
	{"address", "Physical_Address"},
	{"email", "Email"},
	{"bussinessNumber", "Business_Number"},
	{"postalAddress", "Postal_Address"},
	{"kraPIN", "KRA_Pin"},
	{"accountName", "Customer_Name"},
	{"branch", "Branch_Code"},
	{"branchName", "Branch_Name"},
	{"phoneNumber", "Mobile_No"},
	{"customerNumber", "Customer_No"},
}

var defaultMapping = []fieldMapping{
	{"transSuccess", "field39"},
	{"transDescription", "field48"},
	{"transactionCode", "field37"},
	{"transactionType", "field100"},
	{"presentmentAmt", "field4"},
	{"presentmentRef", "field69"},
	{"presentmentAccName", "field125"},
	{"accountBalance", "field54"},
	{"c2cRef", "field80"},
	{"details", "field127"},
}

// ApplyPosthooks renames field-coded backend keys into stable output names.
// Only objects carrying field39 are remapped, and only when the transaction
// type is known. A configured mapping (output name to gjson path) wins over the
// built-in ones. Keys not starting with "field" pass through except for lookups.
func ApplyPosthooks(data any, transactionType string, configured map[string]string) any {
	obj, ok := data.(map[string]any)
	if !ok || transactionType == "" {
		return data
	}
	if _, ok := obj["field39"]; !ok {
		return data
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return data
	}
	doc := gjson.ParseBytes(raw)

	switch {
	case len(configured) > 0:
		out := map[string]any{}
		for name, path := range configured {
			if v := doc.Get(path); v.Exists() {
				out[name] = v.Value()
			}
		}
		return passthroughKeys(obj, out)

	case lookupTransactions[transactionType]:
		out := map[string]any{}
		pick(out, doc, lookupMapping)
		details, hasDetails := obj["field127"].(map[string]any)
		for _, m := range lookupDetailMapping {
			if !hasDetails {
				out[m.name] = ""
				continue
			}
			if v, ok := details[m.path]; ok {
				out[m.name] = v
			}
		}
		if hasDetails {
			out["lookupDetails"] = details
		} else {
			out["lookupDetails"] = map[string]any{}
		}
		return out

	default:
		out := map[string]any{}
		pick(out, doc, defaultMapping)
		return passthroughKeys(obj, out)
	}
}

func pick(out map[string]any, doc gjson.Result, mapping []fieldMapping) {
	for _, m := range mapping {
		if v := doc.Get(m.path); v.Exists() {
			out[m.name] = v.Value()
		}
	}
}

// passthroughKeys copies keys not starting with "field" into out, overwriting
// mapped names.
func passthroughKeys(obj, out map[string]any) map[string]any {
	for k, v := range obj {
		if !strings.HasPrefix(k, "field") {
			out[k] = v
		}
	}
	return out
}
