// Package config loads the agentcrew configuration record.
//
// Values are resolved in this order, later sources winning:
//   - built-in defaults (Default)
//   - an optional YAML file; ${VAR} and $VAR references are expanded
//   - environment variables (AGENTCREW_*), after .env files were loaded
//
// Provider credentials such as GROQ_API_KEY are deliberately not read here;
// the model adapters read them when a request is made.
package config
