// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*

The runtime emits one source of logging: its own internal logs, written
through logrus to stderr, where the Lambda platform forwards them to the
function's CloudWatch log stream.

Log lines are text by default. JSON output can be selected for log
pipelines that parse structured records. Every line written while an
invocation is being delivered carries the requestId field.

*/
package logging
