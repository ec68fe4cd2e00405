// Package remote is a rendering surface whose nodes live in a browser.
//
// Document keeps a lightweight mirror of every node the engine creates and
// translates surface calls into protocol patches. Nodes created during the
// render phase stay local until they are attached under the mount point;
// at that moment the node and its subtree are materialized on the client.
// Nodes of an abandoned pass are therefore never sent.
//
// All patches of one commit, including the materialization of its new
// nodes, are sent from EndCommit as one logical Patches message, split into
// FlagMore continuation frames only when it exceeds the frame size limit.
//
// Document is not safe for concurrent use. It is driven by the engine's
// event loop, and Dispatch must run on that same loop.
package remote
