// Package domain holds the market data types shared by providers,
// services and API contracts.
package domain
