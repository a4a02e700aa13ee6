// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import "medscrub/cmd"

func main() {
	cmd.Execute()
}
