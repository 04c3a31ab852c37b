package actions

import "github.com/forgewalk/forge/internal/validation"

// RegisterBuiltins registers the full builtin action set — core,
// http, crypto, and assert — into reg.
func RegisterBuiltins(reg *Registry, validator *validation.JSONSchemaValidator, httpCfg HTTPConfig) error {
	all := make([]NamedAction, 0, 16)

	all = append(all, CoreActions()...)

	all = append(all,
		NewHTTPRequestAction(httpCfg),
		NewHTTPGetAction(httpCfg),
		NewHTTPPostAction(httpCfg),
	)

	all = append(all, CryptoActions()...)
	all = append(all, AssertActions(validator)...)

	for _, a := range all {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}
