// Package preset assembles the ready-made agents of agentcrew from a
// config.Config: the basic agent, the web and finance agents, the finance
// team and the PDF assistant, plus the model and storage they depend on.
package preset
