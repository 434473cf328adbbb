// Package credentials resolves bearer credentials for hostnames.
//
// Resolution walks a fixed priority chain, first hit wins:
//
//  1. OCTOCODE_TOKEN, GH_TOKEN, GITHUB_TOKEN environment variables
//  2. the OS-native secret store (Keychain, Credential Manager, Secret Service)
//  3. the AES-256-GCM encrypted file under ~/.octocode
//  4. OAuth refresh of an expired stored token
//  5. an optional external fallback callback (typically the gh CLI)
//
// Outcomes, including not-found, are cached per hostname with single-flight
// de-duplication: N concurrent resolutions for one hostname perform exactly
// one underlying lookup. Credentials found in the file store are lazily
// migrated into the native secret store in the background.
//
// Resolution never fails with an error; every degraded source falls through
// to the next. Only RequireToken reports failure, with a message telling the
// user how to authenticate. All log and error text is passed through secret
// masking first.
//
//	resolver := credentials.NewResolver(
//	    credentials.WithFallback(ghCLILookup),
//	    credentials.WithLogger(logger),
//	)
//	resolved := resolver.Resolve(ctx, "github.com")
package credentials
