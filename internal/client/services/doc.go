// Package services implements the device-side use cases: editing records,
// keeping the device identity and synchronizing local stores with the server.
package services
