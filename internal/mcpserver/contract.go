package mcpserver

// PostFormatContract describes how posts are laid out on disk and how their
// front matter is read.
const PostFormatContract = `# Quire Post Format

Every post is a directory under the posts root. The directory name is the
post id and appears in its URL.

## Layout

` + "```" + `
posts/
  hello-world/
    index.md          # REQUIRED, default locale
    index.en.md       # OPTIONAL, one file per extra locale
public/images/posts/
  hello-world/
    thumbnail.png     # OPTIONAL, first file named thumbnail.* is the thumbnail
` + "```" + `

Directories whose name starts with a dot are ignored.

## Front matter

` + "```" + `markdown
---
title: "Hello, world"          # REQUIRED
description: A first post      # REQUIRED
date: 2024-01-15               # REQUIRED, ISO-8601 date or datetime (UTC when no zone)
tags: [go, blog]               # OPTIONAL, flow list or comma separated
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. The block is bounded by the first two lines consisting of ` + "`---`" + `.
2. Each line is split on the first ` + "`: `" + ` (colon followed by a space).
   Everything after it, including further colons, is the value.
3. One layer of matching single or double quotes around a value is removed.
4. Nested YAML is not supported: every key maps to a single line.
5. The body is the text outside the block, with surrounding whitespace trimmed.
6. An unparseable date does not fail the post; it sorts after every dated post.
7. Posts are listed newest first; equal dates keep a stable order.
`
