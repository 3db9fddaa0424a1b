// Package providers holds the identity provider adapter contract and the
// pieces shared by the Google and Apple adapters: the one-time init guard and
// the SDK script loader.
//
// An adapter never talks to the auth API. It produces a provider token that
// the caller hands to the session store (GoogleAuth or AppleAuth).
package providers
