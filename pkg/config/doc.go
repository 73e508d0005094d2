// Package config loads typed configuration structs from the environment.
//
// Structs declare their variables with caarlos0/env tags; Load parses them once
// per type and caches the result, so every component that needs the same
// settings sees the same values. Reload bypasses the cache when settings must be
// re-read, for example after rotating OAuth client secrets.
package config
