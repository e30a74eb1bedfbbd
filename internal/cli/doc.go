// Package cli builds the paramgrid command tree. It is responsible for
// parsing flags and environment variables into an app.Config and for mapping
// outcomes to exit codes; everything else is delegated to the app package.
package cli
