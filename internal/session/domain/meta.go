package domain

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// metaPaths maps transaction metadata names to their location inside accountDetails.
var metaPaths = []struct {
	name string
	path string
}{
	{"agentName", "personalInfo.agentName"},
	{"phoneNumber", "personalInfo.phoneNumber"},
	{"agentCode", "agentInfo.agentNumber"},
	{"agentNumber", "agentInfo.agentNumber"},
	{"outletCode", "agentInfo.outletCode"},
	{"operatorCode", "agentInfo.operatorCode"},
	{"businessName", "agentInfo.businessName"},
	{"branchName", "agentInfo.branchName"},
	{"outletName", "agentInfo.branchName"},
	{"operatorCity", "agentInfo.operatorCity"},
	{"operatorRegion", "agentInfo.operatorRegion"},
	{"MGAgentID", "mgInfo.MGAgentID"},
	{"POSNumber", "mgInfo.POSNumber"},
	{"POSPassword", "mgInfo.POSPassword"},
}

// ExtractMeta returns the metadata merged into every authorized transaction.
// Missing paths yield empty strings.
func ExtractMeta(username string, accountDetails map[string]any) map[string]any {
	meta := map[string]any{"username": username}

	raw, err := json.Marshal(accountDetails)
	if err != nil {
		raw = []byte("{}")
	}
	doc := gjson.ParseBytes(raw)

	for _, mp := range metaPaths {
		value := doc.Get(mp.path)
		if !value.Exists() || value.Type == gjson.Null {
			meta[mp.name] = ""
			continue
		}
		meta[mp.name] = value.Value()
	}
	return meta
}

// ObscureAccount masks every character of an account number except the first
// and last three.
func ObscureAccount(account string) string {
	runes := []rune(account)
	if len(runes) <= 6 {
		return account
	}
	for i := 3; i < len(runes)-3; i++ {
		runes[i] = 'X'
	}
	return string(runes)
}
