// Package gmail finds and extracts the transactional emails behind a user
// request.
//
// The Client wraps the Gmail API; the Pipeline layers the model-driven
// steps on top of it: vendor-scoped inbox search, per-candidate relevance
// classification, and structured field extraction from a selected message.
// Message content is flattened to plain text first, including text pulled
// out of PDF attachments.
//
// Classification is best-effort per candidate. A candidate that cannot be
// fetched or classified is skipped and counted in the result; the lookup
// only fails when no candidate could be classified at all.
package gmail
