// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package cgroups manages Linux control group (cgroups v1) hierarchies
// through the kernel's cgroup pseudo filesystem.
//
// The synchronous surface discovers enabled subsystems and mounted
// hierarchies, creates and removes hierarchies and cgroups, and moves
// tasks between them. On top of that sit the asynchronous drivers: an
// eventfd based notifier for kernel generated events such as OOM, a
// freezer driver that walks a cgroup through the kernel's freeze state
// machine, a task killer that atomically empties a cgroup of tasks, and
// a destroyer that tears down whole subtrees leaf first.
//
// The unified (v2) hierarchy is out of scope.
package cgroups
