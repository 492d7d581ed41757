// Package limits provides centralized frame geometry and size limits for the
// securelink wire protocol. This ensures consistent validation across the
// codec, transports, and connection layer.
package limits
