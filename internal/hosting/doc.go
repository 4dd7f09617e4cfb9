// Package hosting publishes exported frames and returns their public URLs.
//
// The Client speaks the Cloudinary image upload API: one multipart POST per
// frame, either unsigned with an upload preset or signed with an API key and
// secret. PublishAll uploads in slot order and never aborts on a failed
// frame; the shortfall between requested and published frames is reported
// instead. When no cloud is configured, Local builds URLs that point back at
// the API's frame endpoint.
package hosting
